// Package runner launches external tools and streams their output.
//
// Both output pipes of a child are drained concurrently by line pumps while
// the caller blocks; the exit status is collected only after both pumps have
// finished, so a chatty child can never stall on a full pipe buffer.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/GadgetFactory/Papilio-Loader/pkg/pump"
)

// ErrStart is returned when a process could not be launched at all.
var ErrStart = errors.New("runner: failed to start process")

// StartFailureCode is the exit code reported for a process that never ran.
const StartFailureCode = 1

// Invocation is a single external command. It is built fresh for every call.
type Invocation struct {
	// Args is the full argument vector; Args[0] is the executable.
	Args []string

	// Dir is the working directory of the child.
	Dir string

	// Scrape, when set, additionally receives every output line so the
	// caller can pick values out of the tool's text.
	Scrape pump.LineFunc
}

// String renders the argument vector the way it is echoed to the user.
func (inv Invocation) String() string {
	return strings.Join(inv.Args, " ")
}

// Executor runs an invocation to completion and returns its exit code.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) (int, error)
}

// Compile-time interface check.
var _ Executor = (*Runner)(nil)

// Runner is the process-backed Executor. It forwards every line from the
// child's stdout and stderr to one sink.
type Runner struct {
	sink pump.LineFunc
	log  logrus.FieldLogger
	echo bool

	mu sync.Mutex // serializes sink and scrape calls from the two pumps
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the diagnostic logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithEcho makes the runner write "Executing..." and the argument vector to
// the sink before each command.
func WithEcho(echo bool) Option {
	return func(r *Runner) {
		r.echo = echo
	}
}

// New creates a Runner delivering output to sink. sink may be nil.
func New(sink pump.LineFunc, opts ...Option) *Runner {
	r := &Runner{
		sink: sink,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute starts inv, drains both output streams and waits for the child to
// exit. The returned code is the child's exit status. A child killed by a
// signal reports StartFailureCode rather than a negative value so callers
// summing codes never lose a failure.
//
// ctx is only consulted before launch: a running tool is never interrupted.
func (r *Runner) Execute(ctx context.Context, inv Invocation) (int, error) {
	if len(inv.Args) == 0 {
		return StartFailureCode, fmt.Errorf("%w: empty command", ErrStart)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	log := r.log.WithField("tool", inv.Args[0])
	if r.echo {
		r.emit(nil, "Executing..."+pump.LineEnding)
		r.emit(nil, inv.String()+pump.LineEnding+pump.LineEnding)
	}

	cmd := exec.Command(inv.Args[0], inv.Args[1:]...)
	cmd.Dir = inv.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return StartFailureCode, fmt.Errorf("%w: %s: %v", ErrStart, inv.Args[0], err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return StartFailureCode, fmt.Errorf("%w: %s: %v", ErrStart, inv.Args[0], err)
	}

	log.WithField("args", inv.Args[1:]).Debug("starting process")
	if err := cmd.Start(); err != nil {
		log.WithError(err).Error("process did not start")
		return StartFailureCode, fmt.Errorf("%w: %s: %v", ErrStart, inv.Args[0], err)
	}

	consume := func(line string) { r.emit(inv.Scrape, line) }
	outPump := pump.New("stdout", stdout, consume).WithLogger(log)
	errPump := pump.New("stderr", stderr, consume).WithLogger(log)

	var g errgroup.Group
	g.Go(func() error { errPump.Run(); return nil })
	g.Go(func() error { outPump.Run(); return nil })
	// Pumps never fail; Wait only joins them.
	_ = g.Wait()

	code := exitCode(cmd.Wait())
	fields := logrus.Fields{"exit_code": code}
	for _, p := range []*pump.Pump{outPump, errPump} {
		fields[p.Name()+"_lines"] = p.Lines()
	}
	log.WithFields(fields).Info("process finished")

	return code, nil
}

func (r *Runner) emit(scrape pump.LineFunc, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sink != nil {
		r.sink(line)
	}
	if scrape != nil {
		scrape(line)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return StartFailureCode
}
