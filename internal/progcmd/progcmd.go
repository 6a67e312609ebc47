// Package progcmd builds papilio-prog command lines.
package progcmd

// Builder produces argument vectors for one programmer executable. Board,
// when non-empty, selects one of several attached boards by its FTDI
// description.
type Builder struct {
	Tool  string
	Board string
}

// Scan detects the JTAG chain and prints one "Desc:" line per device.
func (b Builder) Scan() []string {
	return b.withBoard([]string{b.Tool, "-j"})
}

// WriteDevice configures the FPGA directly from bit.
func (b Builder) WriteDevice(bit string) []string {
	return append(b.verbose(), "-f", bit)
}

// WriteFlash erases, programs and verifies the SPI flash through the
// bridging bitstream, then reconfigures the FPGA.
func (b Builder) WriteFlash(bit, bscan string) []string {
	return append(b.verbose(), "-f", bit, "-b", bscan, "-sa", "-r")
}

// WriteFlashOnly programs the SPI flash without the erase and verify passes.
func (b Builder) WriteFlashOnly(bit, bscan string) []string {
	return append(b.verbose(), "-f", bit, "-b", bscan, "-sp", "-r")
}

// Erase erases the SPI flash. The tool verifies the erase on its own.
func (b Builder) Erase(bscan string) []string {
	return append(b.verbose(), "-b", bscan, "-se")
}

// Verify compares the SPI flash contents.
func (b Builder) Verify(bscan string) []string {
	return append(b.verbose(), "-b", bscan, "-sv")
}

// Release reads back the FPGA status, which also frees the cable.
func (b Builder) Release() []string {
	return []string{b.Tool, "-c"}
}

func (b Builder) verbose() []string {
	return b.withBoard([]string{b.Tool, "-v"})
}

func (b Builder) withBoard(args []string) []string {
	if b.Board == "" {
		return args
	}
	return append(args, "-d", b.Board)
}
