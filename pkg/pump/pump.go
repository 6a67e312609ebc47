// Package pump drains a byte stream line by line and hands each line to a
// sink. A Pump is meant to run on its own goroutine; Done reports when the
// read loop has exited so the owner can join it.
package pump

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
)

// LineEnding is appended to every delivered line, whatever terminator the
// producer used.
const LineEnding = "\n"

// LineFunc receives one line of output including its terminator.
type LineFunc func(line string)

// Pump reads text lines from a stream until end-of-stream.
type Pump struct {
	name string
	r    io.Reader
	sink LineFunc
	log  logrus.FieldLogger

	lines atomic.Int64
	done  chan struct{}
}

// New creates a pump for r. A nil sink is allowed: lines are still drained
// and then dropped.
func New(name string, r io.Reader, sink LineFunc) *Pump {
	return &Pump{
		name: name,
		r:    r,
		sink: sink,
		log:  logrus.StandardLogger(),
		done: make(chan struct{}),
	}
}

// WithLogger replaces the logger used for stream errors.
func (p *Pump) WithLogger(log logrus.FieldLogger) *Pump {
	if log != nil {
		p.log = log
	}
	return p
}

// Name returns the pump's name (usually "stdout" or "stderr").
func (p *Pump) Name() string { return p.name }

// Lines returns the number of lines delivered so far.
func (p *Pump) Lines() int { return int(p.lines.Load()) }

// Done is closed once Run has returned.
func (p *Pump) Done() <-chan struct{} { return p.done }

// Run reads until end-of-stream and returns. Stream errors never escape:
// a stream closed underneath the reader is treated as end-of-stream and
// anything else is logged. Run must be called at most once.
func (p *Pump) Run() {
	defer close(p.done)

	br := bufio.NewReader(p.r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			p.deliver(line)
		}
		if err == nil {
			continue
		}
		if !IsBenign(err) {
			p.log.WithFields(logrus.Fields{
				"stream": p.name,
				"lines":  p.Lines(),
			}).WithError(err).Warn("output stream failed")
		}
		return
	}
}

func (p *Pump) deliver(raw string) {
	line := strings.TrimSuffix(raw, "\n")
	line = strings.TrimSuffix(line, "\r")
	p.lines.Add(1)
	if p.sink == nil {
		return
	}
	p.sink(line + LineEnding)
}

// IsBenign reports whether err is the expected outcome of a stream being
// closed at or after process exit.
func IsBenign(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, fs.ErrClosed),
		errors.Is(err, syscall.EBADF):
		return true
	}
	return strings.Contains(err.Error(), "bad file descriptor")
}
