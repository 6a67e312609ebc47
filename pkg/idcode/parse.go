package idcode

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDCode parses a raw 32-bit IDCODE into its component fields
func ParseIDCode(raw uint32) IDCode {
	return IDCode{
		Raw:              raw,
		Version:          uint8((raw >> 28) & 0xF),
		PartNumber:       uint16((raw >> 12) & 0xFFFF),
		ManufacturerCode: uint16((raw >> 1) & 0x7FF),
		HasIDCode:        (raw & 0x1) == 0x1,
	}
}

// ParseHex parses an IDCODE written in hex, with or without a 0x prefix.
func ParseHex(s string) (IDCode, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return IDCode{}, fmt.Errorf("idcode: invalid IDCODE %q: %w", s, err)
	}
	return ParseIDCode(uint32(raw)), nil
}
