// Package config describes where the loader finds its external tools and
// how a run behaves. A Config is a plain value: it is loaded once, adjusted
// by command-line flags and handed to the sequencer for a single run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrToolMissing is returned by Validate when an executable is absent.
var ErrToolMissing = errors.New("config: tool not found")

// FileNames are the config files looked up by LoadDir, in order.
var FileNames = []string{"papilio.yml", "papilio.yaml"}

// Config holds the tool layout and run options.
type Config struct {
	// ToolDir holds the programmer, converter and merger executables.
	ToolDir string `yaml:"toolDir,omitempty"`
	// AssetDir holds the bscan_spi_*.bit bridging bitstreams.
	AssetDir string `yaml:"assetDir,omitempty"`
	// WorkDir is the tools' working directory and the merge scratch area.
	WorkDir string `yaml:"workDir,omitempty"`

	Programmer string `yaml:"programmer,omitempty"`
	Converter  string `yaml:"converter,omitempty"`
	Merger     string `yaml:"merger,omitempty"`

	// Board selects one of several attached boards by FTDI description.
	Board string `yaml:"board,omitempty"`
	// Expert enables the program-only SPI flash path.
	Expert bool `yaml:"expert,omitempty"`
	// EchoCommands prints every command line before it runs.
	EchoCommands bool `yaml:"echoCommands,omitempty"`
	// QuitAfter shuts the loader down after a run without errors.
	QuitAfter bool `yaml:"quitAfter,omitempty"`
	// LogLevel applies when --log-level is not given.
	LogLevel string `yaml:"logLevel,omitempty"`

	// Target presets the write target (fpga, flash or disk) when no target
	// flag is given.
	Target string `yaml:"target,omitempty"`
	// Operations presets the write steps as a tag list, for example
	// "[Scan], [Erase], [WriteToSPIFlash], [Verify]".
	Operations string `yaml:"operations,omitempty"`
}

// Paths are the resolved executable locations.
type Paths struct {
	Programmer string
	Converter  string
	Merger     string
}

// PlatformDir returns the tool subdirectory used on this OS.
func PlatformDir() string {
	if runtime.GOOS == "windows" {
		return "win32"
	}
	return "linux32"
}

func exe(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// Default returns the layout shipped with the loader: tools in
// <appDir>/programmer/<platform> and bridging bitstreams in
// <appDir>/programmer.
func Default(appDir string) Config {
	root := filepath.Join(appDir, "programmer")
	tools := filepath.Join(root, PlatformDir())
	return Config{
		ToolDir:    tools,
		AssetDir:   root,
		WorkDir:    tools,
		Programmer: exe("papilio-prog"),
		Converter:  exe("srec_cat"),
		Merger:     exe("data2mem"),
		LogLevel:   "warn",
	}
}

// Load overlays the YAML file at path onto base.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDir overlays papilio.yml or papilio.yaml from dir onto base. A missing
// file is not an error.
func LoadDir(dir string, base Config) (Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return Load(path, base)
	}
	return base, nil
}

// Paths resolves tool names relative to ToolDir.
func (c Config) Paths() Paths {
	return Paths{
		Programmer: c.resolve(c.Programmer),
		Converter:  c.resolve(c.Converter),
		Merger:     c.resolve(c.Merger),
	}
}

func (c Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ToolDir, name)
}

// Validate checks that every executable exists.
func (c Config) Validate() error {
	p := c.Paths()
	for _, tool := range []struct{ label, path string }{
		{"Papilio programmer", p.Programmer},
		{"srec_cat program", p.Converter},
		{"data2mem program", p.Merger},
	} {
		st, err := os.Stat(tool.path)
		if err != nil || !st.Mode().IsRegular() {
			return fmt.Errorf("%w: %s (%s) does not exist on disk, please reinstall the program",
				ErrToolMissing, tool.label, filepath.Base(tool.path))
		}
	}
	if c.WorkDir != "" {
		if st, err := os.Stat(c.WorkDir); err != nil || !st.IsDir() {
			return fmt.Errorf("config: working directory %s is not a directory", c.WorkDir)
		}
	}
	return nil
}
