package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const fakeProg = `#!/bin/sh
echo "args: $*"
case "$1" in
  -j) printf 'JTAG chainpos: 0 Device IDCODE = 0x24001093\tDesc: XC6SLX9\n' ;;
esac
exit 0
`

const fakeSrecCat = `#!/bin/sh
echo "@00000000 0C00 0000" > tmp.mem
`

const fakeData2Mem = `#!/bin/sh
for a; do last="$a"; done
echo merged > "$last"
`

const testBMM = `ADDRESS_SPACE ram RAMB16 [0x00000000:0x00003FFF]
	BUS_BLOCK
		top/ram0 [15:8] LOC = X0Y6;
		top/ram1 [7:0];
	END_BUS_BLOCK;
END_ADDRESS_SPACE;
`

// installFakeTools writes shell stand-ins for the three tools.
func installFakeTools(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	dir := t.TempDir()
	for name, body := range map[string]string{
		"papilio-prog": fakeProg,
		"srec_cat":     fakeSrecCat,
		"data2mem":     fakeData2Mem,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func resetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
}

func execute(args ...string) (string, error) {
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// TestRunE2E runs the loader commands against fake tools
func TestRunE2E(t *testing.T) {
	tools := installFakeTools(t)
	proj := t.TempDir()
	bit := filepath.Join(proj, "top.bit")
	hex := filepath.Join(proj, "prog.hex")
	merged := filepath.Join(proj, "merged.bit")
	for path, body := range map[string]string{
		bit: "bit",
		hex: ":00000001FF\n",
		filepath.Join(proj, "top_bd.bmm"): testBMM,
	} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	asset := filepath.Join(tools, "bscan_spi_xc6slx9.bit")
	common := []string{"--tools", tools, "--assets", tools}

	tests := []struct {
		name        string
		args        []string
		wantErr     string
		wantContain []string
	}{
		{
			name:        "scan",
			args:        []string{"scan"},
			wantContain: []string{"args: -j", "Desc: XC6SLX9", "Done."},
		},
		{
			name:        "scan with board",
			args:        []string{"scan", "--board", "Papilio Pro"},
			wantContain: []string{"args: -j -d Papilio Pro"},
		},
		{
			name:        "write to fpga",
			args:        []string{"write", bit},
			wantContain: []string{"args: -v -f " + bit, "Done."},
		},
		{
			name: "write to flash",
			args: []string{"write", "-s", bit},
			wantContain: []string{
				"args: -j",
				"args: -v -f " + bit + " -b " + asset + " -sa -r",
				"args: -c",
			},
		},
		{
			name:        "write to flash by name",
			args:        []string{"write", "--target", "flash", bit},
			wantContain: []string{"args: -v -f " + bit + " -b " + asset + " -sa -r"},
		},
		{
			name:        "scan help lists supported parts",
			args:        []string{"scan", "--help"},
			wantContain: []string{"XC3S100E, XC3S250E, XC3S500E, XC6SLX4, XC6SLX9"},
		},
		{
			name:        "write to flash in expert mode",
			args:        []string{"write", "-s", "--expert", bit},
			wantContain: []string{"-sp -r"},
		},
		{
			name:        "merge to disk",
			args:        []string{"write", "-d", bit, hex, "-o", merged},
			wantContain: []string{"Merged bitstream written to " + merged},
		},
		{
			name:        "merge then write",
			args:        []string{"write", bit, hex},
			wantContain: []string{"args: -v -f " + filepath.Join(tools, "out.bit")},
		},
		{
			name:        "echo commands",
			args:        []string{"scan", "--echo"},
			wantContain: []string{"Executing...", filepath.Join(tools, "papilio-prog") + " -j"},
		},
		{
			name:        "quit after a clean run",
			args:        []string{"write", "-x", bit},
			wantContain: []string{"args: -v -f"},
		},
		{
			name:        "erase",
			args:        []string{"erase"},
			wantContain: []string{"-b " + asset + " -se"},
		},
		{
			name:        "verify",
			args:        []string{"verify"},
			wantContain: []string{"-b " + asset + " -sv"},
		},
		{
			name:    "missing bmm",
			args:    []string{"write", filepath.Join(proj, "other.bit"), hex},
			wantErr: "BMM file",
		},
		{
			name:    "disk without output",
			args:    []string{"write", "-d", bit, hex},
			wantErr: "no destination file",
		},
		{
			name:    "two targets",
			args:    []string{"write", "-f", "-s", bit},
			wantErr: "none of the others",
		},
		{
			name:    "target flag and short flag",
			args:    []string{"write", "-s", "--target", "disk", bit},
			wantErr: "none of the others",
		},
		{
			name:    "unknown target",
			args:    []string{"write", "--target", "eeprom", bit},
			wantErr: "unknown write target",
		},
		{
			name:    "missing bit file",
			args:    []string{"write", filepath.Join(proj, "absent.bit")},
			wantErr: "does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(append(tt.args, common...)...)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Expected error containing %q but got none\nOutput: %s", tt.wantErr, output)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

// TestConfigPresets checks the write presets and log level read from --config
func TestConfigPresets(t *testing.T) {
	tools := installFakeTools(t)
	proj := t.TempDir()
	bit := filepath.Join(proj, "top.bit")
	if err := os.WriteFile(bit, []byte("bit"), 0o644); err != nil {
		t.Fatal(err)
	}
	asset := filepath.Join(tools, "bscan_spi_xc6slx9.bit")
	t.Cleanup(func() { logrus.SetLevel(logrus.WarnLevel) })

	tests := []struct {
		name        string
		yml         string
		args        []string
		wantErr     string
		wantContain []string
		wantMissing string
		wantLevel   logrus.Level
	}{
		{
			name:        "target preset",
			yml:         "target: flash\nexpert: true\n",
			wantContain: []string{"-b " + asset + " -sp -r"},
			wantLevel:   logrus.WarnLevel,
		},
		{
			name:        "operations preset",
			yml:         "expert: true\noperations: \"[Scan], [WriteToSPIFlash], [Verify]\"\n",
			wantContain: []string{"-b " + asset + " -sa -r"},
			wantLevel:   logrus.WarnLevel,
		},
		{
			name:        "flag beats preset",
			yml:         "target: flash\n",
			args:        []string{"-f"},
			wantContain: []string{"args: -v -f " + bit + "\n"},
			wantMissing: "-b " + asset,
			wantLevel:   logrus.WarnLevel,
		},
		{
			name:        "log level from config",
			yml:         "logLevel: debug\n",
			wantContain: []string{"Done."},
			wantLevel:   logrus.DebugLevel,
		},
		{
			name:        "log level flag beats config",
			yml:         "logLevel: debug\n",
			args:        []string{"--log-level", "error"},
			wantContain: []string{"Done."},
			wantLevel:   logrus.ErrorLevel,
		},
		{
			name:    "bad log level",
			yml:     "logLevel: loud\n",
			wantErr: "invalid logLevel",
		},
		{
			name:    "bad target",
			yml:     "target: eeprom\n",
			wantErr: "unknown write target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile := filepath.Join(t.TempDir(), "papilio.yml")
			if err := os.WriteFile(cfgFile, []byte(tt.yml), 0o644); err != nil {
				t.Fatal(err)
			}
			args := append([]string{"write", bit, "--config", cfgFile, "--tools", tools, "--assets", tools}, tt.args...)
			output, err := execute(args...)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
			if tt.wantMissing != "" && strings.Contains(output, tt.wantMissing) {
				t.Errorf("Output should not contain %q\nGot:\n%s", tt.wantMissing, output)
			}
			if got := logrus.GetLevel(); got != tt.wantLevel {
				t.Errorf("Expected log level %s, got %s", tt.wantLevel, got)
			}
		})
	}
}

func TestQuitAfterIsSilent(t *testing.T) {
	tools := installFakeTools(t)
	bit := filepath.Join(t.TempDir(), "top.bit")
	if err := os.WriteFile(bit, []byte("bit"), 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := execute("write", "-x", bit, "--tools", tools)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(output, "Done.") {
		t.Errorf("Expected no summary with -x, got:\n%s", output)
	}
}

func TestMissingTools(t *testing.T) {
	empty := t.TempDir()
	_, err := execute("scan", "--tools", empty)
	if err == nil {
		t.Fatal("Expected error for missing tools")
	}
	if !strings.Contains(err.Error(), "Papilio programmer") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestFailedToolReturnsError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	tools := installFakeTools(t)
	failing := "#!/bin/sh\necho 'Cable not found' >&2\nexit 2\n"
	if err := os.WriteFile(filepath.Join(tools, "papilio-prog"), []byte(failing), 0o755); err != nil {
		t.Fatal(err)
	}

	output, err := execute("scan", "--tools", tools)
	if err == nil || !strings.Contains(err.Error(), "2 error(s)") {
		t.Fatalf("Expected error count 2, got %v", err)
	}
	if !strings.Contains(output, "Cable not found") {
		t.Errorf("Expected stderr of the tool in output, got:\n%s", output)
	}
}

// TestBMME2E tests the bmm command end-to-end
func TestBMME2E(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top_bd.bmm")
	if err := os.WriteFile(path, []byte(testBMM), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "summary",
			args:        []string{"bmm", path},
			wantContain: []string{"1 address space(s)", "2 block RAM(s)", "ADDRESS_SPACE ram RAMB16", "top/ram0"},
		},
		{
			name:        "placements with verbose",
			args:        []string{"bmm", "-v", path},
			wantContain: []string{"LOC = X0Y6"},
		},
		{
			name:    "missing file",
			args:    []string{"bmm", "/nonexistent/file.bmm"},
			wantErr: true,
		},
		{
			name:    "missing argument",
			args:    []string{"bmm"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(tt.args...)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}
