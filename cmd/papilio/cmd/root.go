package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/GadgetFactory/Papilio-Loader/internal/config"
)

var (
	// Global flags
	verbose    bool
	logLevel   string
	configPath string
	toolDir    string
	assetDir   string
	workDir    string
	board      string
	echo       bool
)

var rootCmd = &cobra.Command{
	Use:   "papilio",
	Short: "Papilio Loader - program Papilio FPGA boards",
	Long: `Papilio Loader writes bitstreams to the FPGA or the SPI flash of Papilio
boards, optionally merging a program image into the bitstream first. The work
is done by papilio-prog, srec_cat and data2mem, which are expected in
<install dir>/programmer/<platform>.

Examples:
  papilio write top.bit                      # Configure the FPGA
  papilio write -s top.bit                   # Write the SPI flash
  papilio write -s top.bit prog.hex          # Merge prog.hex, then write flash
  papilio write -d top.bit prog.hex -o m.bit # Save the merged bitstream
  papilio scan                               # Identify the FPGA
  papilio erase                              # Erase the SPI flash`,
	Version:           "2.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: papilio.yml next to the executable)")
	rootCmd.PersistentFlags().StringVar(&toolDir, "tools", "", "directory holding papilio-prog, srec_cat and data2mem")
	rootCmd.PersistentFlags().StringVar(&assetDir, "assets", "", "directory holding the bscan_spi_*.bit files")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", "", "working directory for the tools and merge scratch files")
	rootCmd.PersistentFlags().StringVar(&board, "board", "", "select a board by its FTDI description")
	rootCmd.PersistentFlags().BoolVar(&echo, "echo", false, "print every command before running it")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())
	return nil
}

// appDir is the directory of the running executable.
func appDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// loadConfig builds the run configuration: defaults, then the config file,
// then command-line flags. The file's logLevel applies unless --log-level or
// -v was given.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dir := appDir()
	cfg := config.Default(dir)

	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath, cfg)
	} else {
		cfg, err = config.LoadDir(dir, cfg)
	}
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if cfg.LogLevel != "" && !flags.Changed("log-level") && !verbose {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid logLevel: %w", err)
		}
		logrus.SetLevel(level)
	}
	if flags.Changed("tools") {
		cfg.ToolDir = toolDir
		if !flags.Changed("work-dir") {
			cfg.WorkDir = toolDir
		}
	}
	if flags.Changed("assets") {
		cfg.AssetDir = assetDir
	}
	if flags.Changed("work-dir") {
		cfg.WorkDir = workDir
	}
	if flags.Changed("board") {
		cfg.Board = board
	}
	if flags.Changed("echo") {
		cfg.EchoCommands = echo
	}

	logrus.WithFields(logrus.Fields{
		"tools":  cfg.ToolDir,
		"assets": cfg.AssetDir,
		"work":   cfg.WorkDir,
	}).Debug("configuration loaded")
	return cfg, nil
}
