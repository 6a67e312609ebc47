package bmm

// File is a parsed BMM file.
type File struct {
	Entries []*Entry `@@*`
}

// Entry is a top-level ADDRESS_MAP or a bare ADDRESS_SPACE.
type Entry struct {
	Map   *AddressMap   `  @@`
	Space *AddressSpace `| @@`
}

// AddressMap groups the address spaces of one processor.
//
//	ADDRESS_MAP cpu PPC405 0
//	  ...
//	END_ADDRESS_MAP;
type AddressMap struct {
	Name      string          `KwAddressMap @Ident`
	Processor string          `@Ident`
	ID        string          `@Number?`
	Spaces    []*AddressSpace `@@* KwEndAddressMap Semicolon`
}

// AddressSpace is a contiguous range of processor memory backed by block
// RAMs.
//
//	ADDRESS_SPACE ram RAMB16 [0x00000000:0x00003FFF]
//	  BUS_BLOCK
//	    ...
//	  END_BUS_BLOCK;
//	END_ADDRESS_SPACE;
type AddressSpace struct {
	Name   string      `KwAddressSpace @Ident`
	Kind   string      `@Ident`
	Start  string      `LBracket @Number`
	End    string      `Colon @Number RBracket`
	Blocks []*BusBlock `@@* KwEndAddressSpace Semicolon`
}

// BusBlock lists the block RAMs that together form one data bus.
type BusBlock struct {
	RAMs []*BlockRAM `KwBusBlock @@* KwEndBusBlock Semicolon`
}

// BlockRAM maps a bit lane of the bus onto one RAM instance.
//
//	top/ram/Mram_ram1 [31:24] LOC = X0Y3;
type BlockRAM struct {
	Instance  string     `@Ident`
	MSB       int        `LBracket @Number`
	LSB       int        `Colon @Number RBracket`
	Placement *Placement `@@? Semicolon`
}

// Placement is the optional LOC or PLACED constraint of a block RAM.
type Placement struct {
	Kind string `@(KwLoc | KwPlaced)`
	Site string `Equals @Ident`
}
