package idcode

import "fmt"

// manufacturers holds the JEP106 codes (bank 0) of vendors whose parts show
// up on FPGA boards and their JTAG cables.
var manufacturers = map[uint16]Manufacturer{
	0x009: {Code: 0x009, Name: "Intel", Abbreviation: "Intel"},
	0x017: {Code: 0x017, Name: "Texas Instruments", Abbreviation: "TI"},
	0x01F: {Code: 0x01F, Name: "Atmel", Abbreviation: "Atmel"},
	0x020: {Code: 0x020, Name: "STMicroelectronics", Abbreviation: "STM"},
	0x021: {Code: 0x021, Name: "Lattice", Abbreviation: "Lattice"},
	0x049: {Code: 0x049, Name: "Xilinx", Abbreviation: "XLNX"},
	0x06E: {Code: 0x06E, Name: "Altera", Abbreviation: "Altera"},
	0x23B: {Code: 0x23B, Name: "ARM", Abbreviation: "ARM"},
}

// LookupManufacturer returns manufacturer info for a JEP106 code
func LookupManufacturer(code uint16) (Manufacturer, bool) {
	m, ok := manufacturers[code]
	if !ok {
		return Manufacturer{
			Code:         code,
			Name:         fmt.Sprintf("Unknown (0x%03X)", code),
			Abbreviation: "Unknown",
		}, false
	}
	return m, true
}
