package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/GadgetFactory/Papilio-Loader/internal/config"
	"github.com/GadgetFactory/Papilio-Loader/internal/sequencer"
)

// lineSink writes tool output verbatim.
type lineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *lineSink) Write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.w, line)
}

// runJob runs one job to completion. With quit set, a clean run ends
// silently; otherwise a summary follows the tool output. The returned error
// is non-nil whenever the run did not succeed.
func runJob(cmd *cobra.Command, cfg config.Config, job sequencer.Job, quit bool) error {
	cfg.QuitAfter = quit
	if job.Board == "" {
		job.Board = cfg.Board
	}

	out := cmd.OutOrStdout()
	sink := &lineSink{w: out}
	quitting := false

	seq := sequencer.New(cfg, sequencer.Hooks{
		OnLine:   sink.Write,
		Shutdown: func() { quitting = true },
	}, sequencer.WithLogger(logrus.StandardLogger()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep := <-seq.Start(ctx, job)
	if rep.Err != nil {
		return rep.Err
	}
	if quitting {
		return nil
	}

	for _, st := range rep.Steps {
		logrus.WithFields(logrus.Fields{"step": st.Name, "exit_code": st.ExitCode}).Debug("step summary")
	}
	if rep.Image != "" && job.Target == sequencer.DiskFile {
		fmt.Fprintf(out, "Merged bitstream written to %s\n", rep.Image)
	}
	if rep.ErrorCount != 0 {
		return fmt.Errorf("finished with %d error(s)", rep.ErrorCount)
	}
	fmt.Fprintln(out, "Done.")
	return nil
}
