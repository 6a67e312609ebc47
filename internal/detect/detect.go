// Package detect identifies the FPGA on the JTAG chain by scraping the
// programmer's scan output, and maps it to the bridging bitstream needed for
// SPI flash access.
package detect

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/GadgetFactory/Papilio-Loader/internal/progcmd"
	"github.com/GadgetFactory/Papilio-Loader/internal/runner"
	"github.com/GadgetFactory/Papilio-Loader/pkg/idcode"
	"github.com/GadgetFactory/Papilio-Loader/pkg/idcode/deviceinfo"
)

const (
	descMarker   = "Desc: "
	idcodeMarker = "IDCODE = "
)

// Detection is the outcome of one scan.
type Detection struct {
	// DeviceID is the part name scraped from the first "Desc:" line; empty
	// when no line matched.
	DeviceID string

	// IDCode is decoded from the same line when it carries one.
	IDCode idcode.IDCode

	// Device is the database entry for DeviceID, or for IDCode when the
	// name is not known.
	Device deviceinfo.DeviceInfo

	// Asset is the absolute path of the bridging bitstream, or empty when
	// the device is missing or unsupported.
	Asset string

	// ExitCode of the scan command.
	ExitCode int
}

// Found reports whether a supported device was detected.
func (d Detection) Found() bool {
	return d.Asset != ""
}

// Scanner runs the programmer's chain scan.
type Scanner struct {
	exec     runner.Executor
	tool     string
	dir      string
	assetDir string
	log      logrus.FieldLogger
}

// NewScanner returns a scanner that runs tool in dir and resolves bridging
// bitstreams inside assetDir.
func NewScanner(exec runner.Executor, tool, dir, assetDir string, log logrus.FieldLogger) *Scanner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scanner{
		exec:     exec,
		tool:     tool,
		dir:      dir,
		assetDir: assetDir,
		log:      log,
	}
}

// Detect scans the chain, optionally restricted to the board whose FTDI
// description is board. The error is non-nil only when the scan could not be
// started; an unrecognized device is reported through Found.
func (s *Scanner) Detect(ctx context.Context, board string) (Detection, error) {
	var det Detection
	var line string

	inv := runner.Invocation{
		Args: progcmd.Builder{Tool: s.tool, Board: board}.Scan(),
		Dir:  s.dir,
		Scrape: func(l string) {
			if det.DeviceID != "" {
				return
			}
			if id, ok := ExtractDeviceID(l); ok {
				det.DeviceID = id
				line = l
			}
		},
	}

	code, err := s.exec.Execute(ctx, inv)
	det.ExitCode = code
	if err != nil {
		return det, err
	}

	if id, ok := ExtractIDCode(line); ok {
		det.IDCode = id
	}

	info, ok := deviceinfo.LookupName(det.DeviceID)
	if !ok && det.IDCode.HasIDCode {
		// Device lists name some parts differently; the IDCODE still
		// identifies them.
		if byID := deviceinfo.Lookup(det.IDCode.Raw); byID.SupportsFlash() {
			info, ok = byID, true
		}
	}
	if !ok {
		s.log.WithField("device", det.DeviceID).Warn("no supported device detected")
		return det, nil
	}
	info.IDCode = det.IDCode
	det.Device = info
	det.Asset = s.AssetFor(info)

	s.log.WithFields(logrus.Fields{
		"device":       det.DeviceID,
		"idcode":       det.IDCode.String(),
		"manufacturer": info.Manufacturer.Name,
		"asset":        det.Asset,
	}).Info("device detected")
	return det, nil
}

// AssetFor returns the path of the device's bridging bitstream.
func (s *Scanner) AssetFor(info deviceinfo.DeviceInfo) string {
	if !info.SupportsFlash() {
		return ""
	}
	return filepath.Join(s.assetDir, info.BscanAsset)
}

// ExtractDeviceID returns the token after the rightmost "Desc: " marker in
// line, without its line terminator.
func ExtractDeviceID(line string) (string, bool) {
	pos := strings.LastIndex(line, descMarker)
	if pos < 0 {
		return "", false
	}
	id := line[pos+len(descMarker):]
	id = strings.TrimSuffix(id, "\n")
	id = strings.TrimSuffix(id, "\r")
	return id, true
}

// ExtractIDCode decodes the "IDCODE = 0x........" field of a scan line.
func ExtractIDCode(line string) (idcode.IDCode, bool) {
	pos := strings.Index(line, idcodeMarker)
	if pos < 0 {
		return idcode.IDCode{}, false
	}
	fields := strings.Fields(line[pos+len(idcodeMarker):])
	if len(fields) == 0 {
		return idcode.IDCode{}, false
	}
	id, err := idcode.ParseHex(fields[0])
	if err != nil {
		return idcode.IDCode{}, false
	}
	return id, true
}
