// Package merge embeds a program image into an FPGA bitstream.
//
// The hex image is converted to a memory dump by srec_cat, rewritten into the
// dialect data2mem accepts, and finally merged by data2mem into a new .bit
// file using the design's BMM memory map.
package merge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/GadgetFactory/Papilio-Loader/internal/runner"
)

// Scratch files, relative to the engine's working directory.
const (
	IntermediateMem = "tmp.mem"
	OutputMem       = "out.mem"
	OutputBit       = "out.bit"
)

var (
	ErrNoIntermediate = errors.New("merge: converter produced no memory dump")
	ErrNoRewrite      = errors.New("merge: rewritten memory dump missing")
	ErrNoOutput       = errors.New("merge: merged bit file missing")
)

// Tools names the two executables the merge needs.
type Tools struct {
	Converter string // srec_cat
	Merger    string // data2mem
}

// Inputs are the files to merge. Output is the destination .bit file; when
// empty the result is written to OutputBit in the working directory.
type Inputs struct {
	Bit    string
	BMM    string
	Hex    string
	Output string
}

// Outcome describes a finished or aborted merge.
type Outcome struct {
	// Image is the merged bit file, set only on success.
	Image string

	// ExitCodes is the sum of the exit codes of every tool that ran.
	ExitCodes int
}

// Engine runs the merge pipeline. Scratch files are owned by the engine and
// overwritten on every run.
type Engine struct {
	exec  runner.Executor
	tools Tools
	dir   string
	log   logrus.FieldLogger
}

// NewEngine returns an engine that runs tools with dir as the working and
// scratch directory.
func NewEngine(exec runner.Executor, tools Tools, dir string, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{exec: exec, tools: tools, dir: dir, log: log}
}

// Merge runs convert, rewrite and merge in order, stopping at the first
// failed step. Intermediate files are left in place.
func (e *Engine) Merge(ctx context.Context, in Inputs) (Outcome, error) {
	var out Outcome
	log := e.log.WithField("step", "merge")

	intermediate := filepath.Join(e.dir, IntermediateMem)
	rewritten := filepath.Join(e.dir, OutputMem)
	target := in.Output
	if target == "" {
		target = filepath.Join(e.dir, OutputBit)
	}

	// Stale scratch files from an earlier run would mask a failed step.
	for _, stale := range []string{intermediate, rewritten, filepath.Join(e.dir, OutputBit)} {
		if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("file", stale).Warn("cannot remove scratch file")
		}
	}

	code, err := e.exec.Execute(ctx, runner.Invocation{
		Args: []string{e.tools.Converter, in.Hex,
			"-Intel", "-Byte_Swap", "2", "-Data_Only",
			"-o", IntermediateMem, "-vmem", "8"},
		Dir: e.dir,
	})
	out.ExitCodes += code
	if err != nil {
		return out, err
	}
	if !isFile(intermediate) {
		log.WithField("file", intermediate).Error("memory dump not produced")
		return out, ErrNoIntermediate
	}

	if err := RewriteMem(intermediate, rewritten); err != nil {
		log.WithError(err).Error("rewriting memory dump failed")
		return out, fmt.Errorf("%w: %w", ErrNoRewrite, err)
	}
	if !isFile(rewritten) {
		return out, ErrNoRewrite
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	code, err = e.exec.Execute(ctx, runner.Invocation{
		Args: []string{e.tools.Merger,
			"-bm", in.BMM,
			"-bt", in.Bit,
			"-bd", OutputMem,
			"-o", "b", target},
		Dir: e.dir,
	})
	out.ExitCodes += code
	if err != nil {
		return out, err
	}
	if !isFile(target) {
		log.WithField("file", target).Error("merged bit file not produced")
		return out, ErrNoOutput
	}

	out.Image = target
	return out, nil
}

// RewriteMem copies an srec_cat memory dump from src to dst, dropping the
// leading address of every line (everything before its first space) and
// ending each line with a single "\n". On failure dst is removed.
func RewriteMem(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if err != nil {
			os.Remove(dst)
		}
	}()
	w := bufio.NewWriter(f)

	r := bufio.NewReader(in)
	for {
		line, rerr := r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if pos := strings.IndexByte(line, ' '); pos >= 0 {
				line = line[pos:]
			}
			if _, err := w.WriteString(line + "\n"); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", dst, err)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			f.Close()
			return fmt.Errorf("read %s: %w", src, rerr)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", dst, err)
	}
	return f.Close()
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
