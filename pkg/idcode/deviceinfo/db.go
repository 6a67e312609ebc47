package deviceinfo

import (
	"sort"

	"github.com/GadgetFactory/Papilio-Loader/pkg/idcode"
)

// key is used for device database lookups
type key struct {
	ManufacturerCode uint16
	PartNumber       uint16
}

var (
	db     = make(map[key]DeviceInfo)
	byName = make(map[string]key)
)

// register adds a device entry to the database
func register(k key, info DeviceInfo) {
	db[k] = info
	byName[info.Name] = k
}

// Lookup returns device information for a given IDCODE
// Falls back to generic info if device is not in database
func Lookup(rawID uint32) DeviceInfo {
	id := idcode.ParseIDCode(rawID)
	m, _ := idcode.LookupManufacturer(id.ManufacturerCode)

	k := key{ManufacturerCode: id.ManufacturerCode, PartNumber: id.PartNumber}
	if info, ok := db[k]; ok {
		info.IDCode = id
		info.Manufacturer = m
		return info
	}

	return DeviceInfo{
		IDCode:       id,
		Manufacturer: m,
		Name:         "Unknown device",
		Description:  "No entry in device database",
	}
}

// LookupName finds a device by the exact name the programmer reports.
func LookupName(name string) (DeviceInfo, bool) {
	k, ok := byName[name]
	if !ok {
		return DeviceInfo{}, false
	}
	info := db[k]
	info.Manufacturer, _ = idcode.LookupManufacturer(k.ManufacturerCode)
	return info, true
}

// Names lists every registered device name in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
