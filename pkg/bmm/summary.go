package bmm

import (
	"fmt"
	"strconv"
)

// Summary counts what a memory map describes.
type Summary struct {
	Spaces int
	Blocks int
	RAMs   int
	// Bytes is the total size of all address spaces.
	Bytes uint64
}

func (s Summary) String() string {
	return fmt.Sprintf("%d address space(s), %d bus block(s), %d block RAM(s), %d bytes",
		s.Spaces, s.Blocks, s.RAMs, s.Bytes)
}

// AddressSpaces returns every address space, including those nested in
// address maps, in file order.
func (f *File) AddressSpaces() []*AddressSpace {
	var out []*AddressSpace
	for _, e := range f.Entries {
		switch {
		case e.Map != nil:
			out = append(out, e.Map.Spaces...)
		case e.Space != nil:
			out = append(out, e.Space)
		}
	}
	return out
}

// Range returns the inclusive start and end addresses.
func (s *AddressSpace) Range() (start, end uint64, err error) {
	start, err = strconv.ParseUint(s.Start, 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("address space %s: bad start %q: %w", s.Name, s.Start, err)
	}
	end, err = strconv.ParseUint(s.End, 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("address space %s: bad end %q: %w", s.Name, s.End, err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("address space %s: end %s before start %s", s.Name, s.End, s.Start)
	}
	return start, end, nil
}

// Width returns the number of data bits covered by the block RAM.
func (r *BlockRAM) Width() int {
	if r.MSB >= r.LSB {
		return r.MSB - r.LSB + 1
	}
	return r.LSB - r.MSB + 1
}

// Summary totals the map. It fails on an address space with an invalid
// range.
func (f *File) Summary() (Summary, error) {
	var sum Summary
	for _, sp := range f.AddressSpaces() {
		start, end, err := sp.Range()
		if err != nil {
			return Summary{}, err
		}
		sum.Spaces++
		sum.Bytes += end - start + 1
		sum.Blocks += len(sp.Blocks)
		for _, b := range sp.Blocks {
			sum.RAMs += len(b.RAMs)
		}
	}
	return sum, nil
}
