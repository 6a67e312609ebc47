// Package sequencer decides which tools to run for a set of selected
// operations and runs them in order.
//
// A run is evaluated once as a decision tree. Without a write it is a
// diagnostic run: scan the chain, then erase or verify the SPI flash. With a
// write the image is optionally merged first and then sent to the FPGA, the
// SPI flash or left on disk. Exit codes of every tool are summed into the
// run's error count.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/GadgetFactory/Papilio-Loader/internal/config"
	"github.com/GadgetFactory/Papilio-Loader/internal/detect"
	"github.com/GadgetFactory/Papilio-Loader/internal/merge"
	"github.com/GadgetFactory/Papilio-Loader/internal/progcmd"
	"github.com/GadgetFactory/Papilio-Loader/internal/runner"
	"github.com/GadgetFactory/Papilio-Loader/pkg/bmm"
	"github.com/GadgetFactory/Papilio-Loader/pkg/pump"
)

// ErrPrecondition wraps every failure detected before the first tool runs.
var ErrPrecondition = errors.New("sequencer: precondition failed")

// NoDeviceWarning is written to the line sink when a run needs the bridging
// bitstream but no supported device was found.
const NoDeviceWarning = "No supported FPGA detected on the JTAG chain, nothing to do for the SPI flash.\n"

// Job is everything one run needs besides the tool layout.
type Job struct {
	Ops    Operations
	Target Target

	BitFile string
	BmmFile string
	HexFile string
	// DiskFile is the destination of a merge when Target is DiskFile.
	DiskFile string

	// Board selects one of several attached boards.
	Board string
}

// Validate checks that the files the selected operations read exist.
func (j Job) Validate() error {
	if !j.Ops.Write {
		return nil
	}
	if err := mustExist("bit file", j.BitFile); err != nil {
		return err
	}
	if j.Ops.Merge {
		if err := mustExist("BMM file", j.BmmFile); err != nil {
			return err
		}
		if err := mustExist("hex file", j.HexFile); err != nil {
			return err
		}
	}
	if j.Target == DiskFile {
		if !j.Ops.Merge {
			return fmt.Errorf("%w: writing to a disk file requires a merge", ErrPrecondition)
		}
		if j.DiskFile == "" {
			return fmt.Errorf("%w: no destination file for the merged bitstream", ErrPrecondition)
		}
	}
	return nil
}

func mustExist(what, path string) error {
	if path == "" {
		return fmt.Errorf("%w: no %s given", ErrPrecondition, what)
	}
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return fmt.Errorf("%w: %s %s does not exist", ErrPrecondition, what, path)
	}
	return nil
}

// Hooks connect a run to its caller.
type Hooks struct {
	// OnLine receives every line of tool output and the sequencer's own
	// notices. It is called from the pump goroutines.
	OnLine pump.LineFunc

	// OnComplete is called once at the end of every run, including runs
	// that failed their preconditions.
	OnComplete func(Report)

	// Shutdown is called after OnComplete when the configuration asks to
	// quit and the run finished without errors.
	Shutdown func()
}

// Step records one tool invocation.
type Step struct {
	Name     string
	Args     []string
	ExitCode int
	Err      error
}

// Report is the outcome of a run.
type Report struct {
	// ErrorCount is the sum of the exit codes of every tool that ran.
	ErrorCount int

	Steps    []Step
	Warnings []string

	// Image is the bitstream that was written or saved, if any.
	Image string

	// Err is set when the run stopped early: a precondition failed, the
	// merge failed or the context was canceled.
	Err error
}

// Aborted reports whether the run stopped before its last step.
func (r Report) Aborted() bool {
	return r.Err != nil
}

// OK reports whether the run completed and every tool exited with 0.
func (r Report) OK() bool {
	return r.Err == nil && r.ErrorCount == 0
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithExecutor replaces the process runner.
func WithExecutor(exec runner.Executor) Option {
	return func(s *Sequencer) {
		s.exec = exec
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Sequencer) {
		if log != nil {
			s.log = log
		}
	}
}

// Sequencer runs jobs against one tool layout.
type Sequencer struct {
	cfg   config.Config
	hooks Hooks
	exec  runner.Executor
	log   logrus.FieldLogger
}

// New returns a sequencer for cfg. Unless WithExecutor is given, tools are
// run as processes whose output goes to hooks.OnLine.
func New(cfg config.Config, hooks Hooks, opts ...Option) *Sequencer {
	s := &Sequencer{
		cfg:   cfg,
		hooks: hooks,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exec == nil {
		s.exec = runner.New(hooks.OnLine,
			runner.WithLogger(s.log),
			runner.WithEcho(cfg.EchoCommands))
	}
	return s
}

// Start runs job on a new goroutine. The returned channel receives the
// report and is then closed.
func (s *Sequencer) Start(ctx context.Context, job Job) <-chan Report {
	ch := make(chan Report, 1)
	go func() {
		defer close(ch)
		ch <- s.Run(ctx, job)
	}()
	return ch
}

// run is the state threaded through the steps of one run.
type run struct {
	job    Job
	report Report
	asset  string
}

func (r run) stopped() bool {
	return r.report.Err != nil
}

// Run executes job and blocks until it is done. OnComplete is always called
// before Run returns.
func (s *Sequencer) Run(ctx context.Context, job Job) (rep Report) {
	defer func() { s.finish(rep) }()

	s.log.WithFields(logrus.Fields{
		"ops":    job.Ops.Tags(job.Target),
		"target": job.Target.Token(),
	}).Debug("run started")

	if err := s.cfg.Validate(); err != nil {
		return Report{Err: fmt.Errorf("%w: %w", ErrPrecondition, err)}
	}
	if err := job.Validate(); err != nil {
		return Report{Err: err}
	}

	st := run{job: job}
	if job.Ops.Write {
		st = s.write(ctx, st)
	} else {
		st = s.diagnose(ctx, st)
	}
	return st.report
}

func (s *Sequencer) finish(rep Report) {
	log := s.log.WithField("error_count", rep.ErrorCount)
	if rep.Err != nil {
		log = log.WithError(rep.Err)
	}
	log.Info("run finished")

	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete(rep)
	}
	if s.cfg.QuitAfter && rep.OK() && s.hooks.Shutdown != nil {
		s.hooks.Shutdown()
	}
}

// diagnose scans the chain, then erases or verifies the flash. Erase wins
// over verify.
func (s *Sequencer) diagnose(ctx context.Context, st run) run {
	st = s.scan(ctx, st)
	if st.stopped() || st.asset == "" {
		return st
	}

	b := s.programmer(st)
	switch {
	case st.job.Ops.Erase:
		st = s.step(ctx, st, "erase", b.Erase(st.asset))
	case st.job.Ops.Verify:
		st = s.step(ctx, st, "verify", b.Verify(st.asset))
	}
	return st
}

// write merges if asked and sends the image to its target.
func (s *Sequencer) write(ctx context.Context, st run) run {
	st.report.Image = st.job.BitFile
	if st.job.Ops.Merge {
		st = s.merge(ctx, st)
		if st.stopped() {
			return st
		}
	}

	b := s.programmer(st)
	switch st.job.Target {
	case Device:
		st = s.step(ctx, st, "write", b.WriteDevice(st.report.Image))

	case Flash:
		st = s.scan(ctx, st)
		if st.stopped() || st.asset == "" {
			return st
		}
		if s.cfg.Expert && !st.job.Ops.Verify && !st.job.Ops.Erase {
			st = s.step(ctx, st, "write", b.WriteFlashOnly(st.report.Image, st.asset))
		} else {
			st = s.step(ctx, st, "write", b.WriteFlash(st.report.Image, st.asset))
		}
		st = s.step(ctx, st, "release", b.Release())

	case DiskFile:
		s.log.WithField("file", st.report.Image).Info("merged bitstream saved")
	}
	return st
}

func (s *Sequencer) programmer(st run) progcmd.Builder {
	return progcmd.Builder{Tool: s.cfg.Paths().Programmer, Board: st.job.Board}
}

// step runs one programmer command unless the run has stopped.
func (s *Sequencer) step(ctx context.Context, st run, name string, args []string) run {
	if st.stopped() {
		return st
	}
	if err := ctx.Err(); err != nil {
		st.report.Err = err
		return st
	}

	code, err := s.exec.Execute(ctx, runner.Invocation{Args: args, Dir: s.cfg.WorkDir})
	return s.record(st, Step{Name: name, Args: args, ExitCode: code, Err: err})
}

func (s *Sequencer) record(st run, step Step) run {
	st.report.ErrorCount += step.ExitCode
	st.report.Steps = append(st.report.Steps, step)

	log := s.log.WithFields(logrus.Fields{"step": step.Name, "exit_code": step.ExitCode})
	switch {
	case isCanceled(step.Err):
		st.report.Err = step.Err
		log.Warn("run canceled")
	case step.Err != nil:
		log.WithError(step.Err).Error("step failed to start")
	case step.ExitCode != 0:
		log.Warn("step failed")
	default:
		log.Debug("step done")
	}
	return st
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// scan detects the device and records its bridging bitstream in st.asset.
func (s *Sequencer) scan(ctx context.Context, st run) run {
	if st.stopped() {
		return st
	}
	if err := ctx.Err(); err != nil {
		st.report.Err = err
		return st
	}

	tool := s.cfg.Paths().Programmer
	scanner := detect.NewScanner(s.exec, tool, s.cfg.WorkDir, s.cfg.AssetDir, s.log)
	det, err := scanner.Detect(ctx, st.job.Board)
	st = s.record(st, Step{
		Name:     "scan",
		Args:     progcmd.Builder{Tool: tool, Board: st.job.Board}.Scan(),
		ExitCode: det.ExitCode,
		Err:      err,
	})
	if st.stopped() {
		return st
	}

	st.asset = det.Asset
	if !det.Found() {
		st.report.Warnings = append(st.report.Warnings, NoDeviceWarning)
		s.notify(NoDeviceWarning)
		return st
	}
	if _, err := os.Stat(det.Asset); err != nil {
		s.log.WithField("asset", det.Asset).Warn("bridging bitstream missing on disk")
	}
	return st
}

// merge embeds the hex image and replaces the report's image with the
// merged bitstream. A failed merge stops the run.
func (s *Sequencer) merge(ctx context.Context, st run) run {
	if err := ctx.Err(); err != nil {
		st.report.Err = err
		return st
	}

	if m, err := bmm.ParseFile(st.job.BmmFile); err != nil {
		s.log.WithError(err).WithField("file", st.job.BmmFile).Warn("memory map not understood, passing it to data2mem as is")
	} else if sum, err := m.Summary(); err == nil {
		s.log.WithField("file", st.job.BmmFile).Debugf("memory map: %s", sum)
	}

	in := merge.Inputs{Bit: st.job.BitFile, BMM: st.job.BmmFile, Hex: st.job.HexFile}
	if st.job.Target == DiskFile {
		in.Output = st.job.DiskFile
	}
	paths := s.cfg.Paths()
	eng := merge.NewEngine(s.exec, merge.Tools{Converter: paths.Converter, Merger: paths.Merger}, s.cfg.WorkDir, s.log)

	out, err := eng.Merge(ctx, in)
	st.report.ErrorCount += out.ExitCodes
	st.report.Steps = append(st.report.Steps, Step{Name: "merge", ExitCode: out.ExitCodes, Err: err})
	if err != nil {
		st.report.Err = err
		s.log.WithError(err).Error("merge failed")
		return st
	}
	st.report.Image = out.Image
	return st
}

func (s *Sequencer) notify(line string) {
	if s.hooks.OnLine != nil {
		s.hooks.OnLine(line)
	}
}
