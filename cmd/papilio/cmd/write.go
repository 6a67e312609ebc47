package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GadgetFactory/Papilio-Loader/internal/config"
	"github.com/GadgetFactory/Papilio-Loader/internal/sequencer"
	"github.com/GadgetFactory/Papilio-Loader/pkg/bmm"
)

var (
	toFPGA     bool
	toFlash    bool
	toDisk     bool
	targetName string
	bmmFile    string
	outputFile string
	quitAfter  bool
	expert     bool
	withVerify bool
	withErase  bool
)

var writeCmd = &cobra.Command{
	Use:   "write <bitfile> [hexfile]",
	Short: "Write a bitstream to the FPGA, the SPI flash or a file",
	Long: `Write a bitstream to the board. When a hex file is given it is merged into
the bitstream first, using the BMM memory map from --bmm or, by default,
the <bitfile>_bd.bmm file next to the bitstream.

Targets:
  -f  FPGA (default); the design is lost at power off
  -s  SPI flash; the FPGA boots from it
  -d  disk file; only save the merged bitstream to --output
  --target fpga|flash|disk selects the same targets by name

Without a target flag, the target and operations entries of the config
file apply, for example:
  target: flash
  operations: "[Scan], [Erase], [WriteToSPIFlash], [Verify]"

Examples:
  papilio write top.bit
  papilio write -s -x top.bit
  papilio write -s --verify top.bit prog.hex
  papilio write -d top.bit prog.hex -o merged.bit`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)

	writeCmd.Flags().BoolVarP(&toFPGA, "fpga", "f", false, "write to the FPGA")
	writeCmd.Flags().BoolVarP(&toFlash, "spi", "s", false, "write to the SPI flash")
	writeCmd.Flags().BoolVarP(&toDisk, "disk", "d", false, "save the merged bitstream to --output")
	writeCmd.Flags().StringVar(&targetName, "target", "", "write target by name: fpga, flash or disk")
	writeCmd.MarkFlagsMutuallyExclusive("fpga", "spi", "disk", "target")

	writeCmd.Flags().StringVar(&bmmFile, "bmm", "", "BMM memory map for the merge")
	writeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "destination of the merged bitstream (with -d)")
	writeCmd.Flags().BoolVarP(&quitAfter, "quit", "x", false, "exit silently after a run without errors")
	writeCmd.Flags().BoolVar(&expert, "expert", false, "program the SPI flash without erase and verify passes")
	writeCmd.Flags().BoolVar(&withVerify, "verify", false, "verify the SPI flash after writing")
	writeCmd.Flags().BoolVar(&withErase, "erase", false, "erase the SPI flash before writing")
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("expert") {
		cfg.Expert = expert
	}

	job := sequencer.Job{
		Ops:      sequencer.Operations{Scan: true, Write: true, Verify: withVerify, Erase: withErase},
		Target:   sequencer.Device,
		BitFile:  args[0],
		DiskFile: outputFile,
	}
	if err := applyPresets(cmd, cfg, &job); err != nil {
		return err
	}
	switch {
	case toFlash:
		job.Target = sequencer.Flash
	case toDisk:
		job.Target = sequencer.DiskFile
	case toFPGA:
		job.Target = sequencer.Device
	case targetName != "":
		if job.Target, err = sequencer.ParseTarget(targetName); err != nil {
			return err
		}
	}

	if len(args) == 2 {
		job.Ops.Merge = true
		job.HexFile = args[1]
		job.BmmFile, err = resolveBMM(args[0], bmmFile)
		if err != nil {
			return err
		}
	}

	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Operations: %s\n", job.Ops.Tags(job.Target))
	}
	return runJob(cmd, cfg, job, quitAfter)
}

// applyPresets applies the config file's operations and target. Steps given
// as flags win over the operations preset; scan and write always happen.
func applyPresets(cmd *cobra.Command, cfg config.Config, job *sequencer.Job) error {
	if cfg.Operations != "" {
		ops, target := sequencer.ParseTags(cfg.Operations)
		flags := cmd.Flags()
		if !flags.Changed("verify") {
			job.Ops.Verify = ops.Verify
		}
		if !flags.Changed("erase") {
			job.Ops.Erase = ops.Erase
		}
		if ops.Write {
			job.Target = target
		}
	}
	if cfg.Target != "" {
		t, err := sequencer.ParseTarget(cfg.Target)
		if err != nil {
			return fmt.Errorf("config target: %w", err)
		}
		job.Target = t
	}
	return nil
}

// resolveBMM returns explicit, or the memory map Xilinx tools place next to
// the bitstream.
func resolveBMM(bitFile, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	suggested := bmm.SuggestedFor(bitFile)
	if _, err := os.Stat(suggested); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("BMM file %s not found, use --bmm", suggested)
		}
		return "", err
	}
	return suggested, nil
}
