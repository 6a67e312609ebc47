// Package probe lists the FTDI based programming cables attached over USB.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"
)

// FTDI vendor and the product IDs used by Papilio boards.
const (
	VendorIDFTDI      uint16 = 0x0403
	ProductIDFT2232   uint16 = 0x6010
	ProductIDPapilioD uint16 = 0x7bc0
)

// Board describes one detected cable.
type Board struct {
	Description string
	VendorID    uint16
	ProductID   uint16
	// Product is the USB product string, which is what the programmer
	// matches its -d option against. Empty when the device cannot be opened.
	Product string
	Serial  string
	Path    string
}

// Label returns a user-friendly description for the board.
func (b Board) Label() string {
	name := b.Description
	if b.Product != "" {
		name = b.Product
	}
	if b.Serial != "" {
		return fmt.Sprintf("%s [%s] (%04X:%04X)", name, b.Serial, b.VendorID, b.ProductID)
	}
	return fmt.Sprintf("%s (%04X:%04X)", name, b.VendorID, b.ProductID)
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownBoards = []knownUSBDevice{
	{VendorID: VendorIDFTDI, ProductID: ProductIDFT2232, Description: "Papilio One/Pro (FT2232)"},
	{VendorID: VendorIDFTDI, ProductID: ProductIDPapilioD, Description: "Papilio DUO"},
}

// Discover enumerates connected boards that match known VID/PID pairs.
// Devices that cannot be opened are still listed, without their strings.
func Discover(ctx context.Context) ([]Board, error) {
	usb := gousb.NewContext()
	defer usb.Close()

	var results []Board
	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		b, ok := classifyUSBDevice(uint16(desc.Vendor), uint16(desc.Product))
		if !ok {
			return false
		}
		b.Path = fmt.Sprintf("bus %d address %d", desc.Bus, desc.Address)
		results = append(results, b)
		return true
	})
	for _, dev := range devs {
		fillStrings(results, dev)
		dev.Close()
	}
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return results, err
	}
	return results, ctx.Err()
}

func fillStrings(boards []Board, dev *gousb.Device) {
	path := fmt.Sprintf("bus %d address %d", dev.Desc.Bus, dev.Desc.Address)
	for i := range boards {
		if boards[i].Path != path {
			continue
		}
		if s, err := dev.Product(); err == nil {
			boards[i].Product = s
		}
		if s, err := dev.SerialNumber(); err == nil {
			boards[i].Serial = s
		}
	}
}

func classifyUSBDevice(vid, pid uint16) (Board, bool) {
	for _, known := range knownBoards {
		if vid == known.VendorID && pid == known.ProductID {
			return Board{
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
			}, true
		}
	}
	return Board{}, false
}
