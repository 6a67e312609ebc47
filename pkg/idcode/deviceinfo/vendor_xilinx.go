package deviceinfo

// Xilinx parts fitted to Papilio boards.
func init() {
	const xilinx = 0x049 // Xilinx JEP106 code

	// Spartan-3E (Papilio One)
	register(key{ManufacturerCode: xilinx, PartNumber: 0x1C10}, DeviceInfo{
		Name:        "XC3S100E",
		Family:      "Spartan-3E",
		Description: "Spartan-3E FPGA, 100K gates",
		IsFPGA:      true,
		IRLength:    6,
		BscanAsset:  "bscan_spi_xc3s100e.bit",
	})

	register(key{ManufacturerCode: xilinx, PartNumber: 0x1C1A}, DeviceInfo{
		Name:        "XC3S250E",
		Family:      "Spartan-3E",
		Description: "Spartan-3E FPGA, 250K gates",
		Package:     "VQ100",
		IsFPGA:      true,
		IRLength:    6,
		BscanAsset:  "bscan_spi_xc3s250e.bit",
	})

	register(key{ManufacturerCode: xilinx, PartNumber: 0x1C22}, DeviceInfo{
		Name:        "XC3S500E",
		Family:      "Spartan-3E",
		Description: "Spartan-3E FPGA, 500K gates",
		Package:     "VQ100",
		IsFPGA:      true,
		IRLength:    6,
		BscanAsset:  "bscan_spi_xc3s500e.bit",
	})

	// Spartan-6 (Papilio Pro, Papilio DUO)
	register(key{ManufacturerCode: xilinx, PartNumber: 0x4000}, DeviceInfo{
		Name:        "XC6SLX4",
		Family:      "Spartan-6 LX",
		Description: "Spartan-6 LX FPGA, 3840 logic cells",
		Package:     "TQG144",
		IsFPGA:      true,
		IRLength:    6,
		BscanAsset:  "bscan_spi_xc6slx4.bit",
	})

	register(key{ManufacturerCode: xilinx, PartNumber: 0x4001}, DeviceInfo{
		Name:        "XC6SLX9",
		Family:      "Spartan-6 LX",
		Description: "Spartan-6 LX FPGA, 9152 logic cells",
		Package:     "TQG144",
		IsFPGA:      true,
		IRLength:    6,
		BscanAsset:  "bscan_spi_xc6slx9.bit",
	})
}
