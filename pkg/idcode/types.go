package idcode

import "fmt"

// IDCode represents a parsed IEEE 1149.1 JTAG IDCODE
type IDCode struct {
	Raw              uint32 // full IDCODE
	Version          uint8  // [31:28]
	PartNumber       uint16 // [27:12]
	ManufacturerCode uint16 // [11:1] JEP106
	HasIDCode        bool   // bit 0 == 1
}

// String formats the IDCODE the way papilio-prog prints it.
func (id IDCode) String() string {
	return fmt.Sprintf("0x%08x", id.Raw)
}

// Manufacturer represents a JEP106 manufacturer entry
type Manufacturer struct {
	Code         uint16 // JEP106 code
	Name         string // "Xilinx"
	Abbreviation string // "XLNX"
}
