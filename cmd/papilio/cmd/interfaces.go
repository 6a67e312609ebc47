package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GadgetFactory/Papilio-Loader/internal/probe"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List attached Papilio boards",
	Long: `Scan the USB bus for the FTDI chips used on Papilio boards and print what
was found. The product string is the value to pass to --board when several
boards are attached.`,
	Args: cobra.NoArgs,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	boards, err := probe.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover boards: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(boards) == 0 {
		fmt.Fprintln(out, "No boards found.")
		return nil
	}

	fmt.Fprintln(out, "Detected boards:")
	for _, b := range boards {
		fmt.Fprintf(out, "  - %s at %s\n", b.Label(), b.Path)
	}
	return nil
}
