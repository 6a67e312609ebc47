package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/GadgetFactory/Papilio-Loader/internal/sequencer"
	"github.com/GadgetFactory/Papilio-Loader/pkg/idcode/deviceinfo"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Identify the FPGA on the JTAG chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnostic(cmd, sequencer.Operations{Scan: true})
	},
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the SPI flash",
	Long: `Detect the FPGA, load its bridging bitstream and erase the SPI flash.
papilio-prog verifies the erase on its own.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnostic(cmd, sequencer.Operations{Scan: true, Erase: true})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the SPI flash contents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnostic(cmd, sequencer.Operations{Scan: true, Verify: true})
	},
}

func init() {
	scanCmd.Long = "Run a JTAG chain scan and print what papilio-prog reports. Supported parts:\n  " +
		strings.Join(deviceinfo.Names(), ", ")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runDiagnostic(cmd *cobra.Command, ops sequencer.Operations) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runJob(cmd, cfg, sequencer.Job{Ops: ops}, false)
}
