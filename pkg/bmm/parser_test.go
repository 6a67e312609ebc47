package bmm

import (
	"os"
	"path/filepath"
	"testing"
)

const papilioBMM = `
// BMM LOC annotation file.
/* AVR8 program memory */
ADDRESS_SPACE avr8_pm RAMB16 [0x00000000:0x00003FFF]
	BUS_BLOCK
		Inst_AVR8/PM_Inst/RAM_Word0 [15:8] LOC = X0Y6;
		Inst_AVR8/PM_Inst/RAM_Word1 [7:0] PLACED = X0Y7;
	END_BUS_BLOCK;
	BUS_BLOCK
		Inst_AVR8/PM_Inst/RAM_Word2 [15:0];
	END_BUS_BLOCK;
END_ADDRESS_SPACE;
`

func TestParseAddressSpace(t *testing.T) {
	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	f, err := parser.ParseString(papilioBMM)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	spaces := f.AddressSpaces()
	if len(spaces) != 1 {
		t.Fatalf("Expected 1 address space, got %d", len(spaces))
	}
	sp := spaces[0]
	if sp.Name != "avr8_pm" || sp.Kind != "RAMB16" {
		t.Errorf("Unexpected address space header: %s %s", sp.Name, sp.Kind)
	}
	if len(sp.Blocks) != 2 {
		t.Fatalf("Expected 2 bus blocks, got %d", len(sp.Blocks))
	}

	ram := sp.Blocks[0].RAMs[0]
	if ram.Instance != "Inst_AVR8/PM_Inst/RAM_Word0" {
		t.Errorf("Unexpected instance %q", ram.Instance)
	}
	if ram.MSB != 15 || ram.LSB != 8 || ram.Width() != 8 {
		t.Errorf("Unexpected lane [%d:%d] width %d", ram.MSB, ram.LSB, ram.Width())
	}
	if ram.Placement == nil || ram.Placement.Kind != "LOC" || ram.Placement.Site != "X0Y6" {
		t.Errorf("Unexpected placement %+v", ram.Placement)
	}
	if p := sp.Blocks[0].RAMs[1].Placement; p == nil || p.Kind != "PLACED" {
		t.Errorf("Expected PLACED constraint, got %+v", p)
	}
	if sp.Blocks[1].RAMs[0].Placement != nil {
		t.Error("Expected no placement on unconstrained RAM")
	}
}

func TestParseAddressMap(t *testing.T) {
	input := `
ADDRESS_MAP zpu ZPU 100
	ADDRESS_SPACE boot RAMB16 [0x0000:0x07FF]
		BUS_BLOCK
			boot/ram [31:0];
		END_BUS_BLOCK;
	END_ADDRESS_SPACE;
	ADDRESS_SPACE data RAMB16 [0x0800:0x0FFF]
		BUS_BLOCK
			data/ram [31:0];
		END_BUS_BLOCK;
	END_ADDRESS_SPACE;
END_ADDRESS_MAP;
`
	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	f, err := parser.ParseString(input)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if len(f.Entries) != 1 || f.Entries[0].Map == nil {
		t.Fatalf("Expected one address map, got %+v", f.Entries)
	}
	m := f.Entries[0].Map
	if m.Name != "zpu" || m.Processor != "ZPU" || m.ID != "100" {
		t.Errorf("Unexpected map header: %s %s %s", m.Name, m.Processor, m.ID)
	}

	sum, err := f.Summary()
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	want := Summary{Spaces: 2, Blocks: 2, RAMs: 2, Bytes: 0x1000}
	if sum != want {
		t.Errorf("Expected %+v, got %+v", want, sum)
	}
}

func TestSummary(t *testing.T) {
	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	f, err := parser.ParseString(papilioBMM)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	sum, err := f.Summary()
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Spaces != 1 || sum.Blocks != 2 || sum.RAMs != 3 || sum.Bytes != 0x4000 {
		t.Errorf("Unexpected summary %+v", sum)
	}
	if got := sum.String(); got != "1 address space(s), 2 bus block(s), 3 block RAM(s), 16384 bytes" {
		t.Errorf("Unexpected summary text %q", got)
	}
}

func TestSummaryRejectsInvertedRange(t *testing.T) {
	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	f, err := parser.ParseString(`ADDRESS_SPACE bad RAMB16 [0x100:0x0FF] END_ADDRESS_SPACE;`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if _, err := f.Summary(); err == nil {
		t.Error("Expected error for end before start")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing end", "ADDRESS_SPACE ram RAMB16 [0x0:0xFF]\n BUS_BLOCK\n a [7:0];\n END_BUS_BLOCK;\n"},
		{"missing range", "ADDRESS_SPACE ram RAMB16 END_ADDRESS_SPACE;"},
		{"not a bmm", "entity TEST_CHIP is end TEST_CHIP;"},
	}

	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.ParseString(tt.input); err == nil {
				t.Errorf("Expected parse error for %q", tt.input)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top_bd.bmm")
	if err := os.WriteFile(path, []byte(papilioBMM), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if n := len(f.AddressSpaces()); n != 1 {
		t.Errorf("Expected 1 address space, got %d", n)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "absent.bmm")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestSuggestedFor(t *testing.T) {
	tests := map[string]string{
		"/proj/top.bit":  "/proj/top_bd.bmm",
		"/proj/TOP.BIT":  "/proj/TOP_bd.bmm",
		"design":         "design_bd.bmm",
		"a.b/design.bit": "a.b/design_bd.bmm",
	}
	for in, want := range tests {
		if got := SuggestedFor(in); got != want {
			t.Errorf("SuggestedFor(%q) = %q, want %q", in, got, want)
		}
	}
}
