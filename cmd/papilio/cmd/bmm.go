package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GadgetFactory/Papilio-Loader/pkg/bmm"
)

var bmmCmd = &cobra.Command{
	Use:   "bmm <bmm-file>",
	Short: "Show the layout of a BMM memory map",
	Long: `Parse a BMM file and list its address spaces and block RAMs. Use this to
check the map before merging a program image with "papilio write".

Examples:
  papilio bmm top_bd.bmm
  papilio bmm -v top_bd.bmm`,
	Args: cobra.ExactArgs(1),
	RunE: runBMM,
}

func init() {
	rootCmd.AddCommand(bmmCmd)
}

func runBMM(cmd *cobra.Command, args []string) error {
	f, err := bmm.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to parse file: %w", err)
	}
	sum, err := f.Summary()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", args[0], sum)
	for _, sp := range f.AddressSpaces() {
		fmt.Fprintf(out, "\nADDRESS_SPACE %s %s [%s:%s]\n", sp.Name, sp.Kind, sp.Start, sp.End)
		for i, b := range sp.Blocks {
			fmt.Fprintf(out, "  bus block %d:\n", i)
			for _, ram := range b.RAMs {
				fmt.Fprintf(out, "    %-40s [%d:%d]", ram.Instance, ram.MSB, ram.LSB)
				if verbose && ram.Placement != nil {
					fmt.Fprintf(out, " %s = %s", ram.Placement.Kind, ram.Placement.Site)
				}
				fmt.Fprintln(out)
			}
		}
	}
	return nil
}
