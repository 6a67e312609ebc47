package deviceinfo

import "github.com/GadgetFactory/Papilio-Loader/pkg/idcode"

// DeviceInfo contains rich information about a JTAG device
type DeviceInfo struct {
	// Key fields
	IDCode       idcode.IDCode
	Manufacturer idcode.Manufacturer

	// Human-friendly
	Name        string // "XC6SLX9", as printed after "Desc:" by the programmer
	Family      string // "Spartan-6"
	Description string
	Package     string // "TQG144", if known

	IsFPGA   bool
	IRLength int

	// BscanAsset is the bridging bitstream that exposes the board's SPI
	// flash over JTAG. Empty when the part has no flash support.
	BscanAsset string
}

// SupportsFlash reports whether a bridging bitstream exists for the part.
func (d DeviceInfo) SupportsFlash() bool {
	return d.BscanAsset != ""
}
