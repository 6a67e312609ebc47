package sequencer

import (
	"fmt"
	"strings"
)

// Target is where the final image is written.
type Target int

const (
	// Device configures the FPGA directly; the design is lost at power off.
	Device Target = iota
	// Flash programs the SPI flash through a bridging bitstream.
	Flash
	// DiskFile only saves the merged bitstream.
	DiskFile
)

type targetNames struct {
	label string // shown to the user
	token string // accepted on the command line and in config files
	op    string // operation list tag
}

var targetTable = map[Target]targetNames{
	Device:   {label: "FPGA", token: "fpga", op: "[WriteToFPGA]"},
	Flash:    {label: "SPI Flash", token: "flash", op: "[WriteToSPIFlash]"},
	DiskFile: {label: "Disk File", token: "disk", op: "[WriteToDisk]"},
}

func (t Target) String() string {
	if n, ok := targetTable[t]; ok {
		return n.label
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// Token returns the short name accepted by ParseTarget.
func (t Target) Token() string {
	return targetTable[t].token
}

// ParseTarget accepts a token ("fpga", "flash", "disk") or a display label,
// ignoring case.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	for t, n := range targetTable {
		if strings.EqualFold(s, n.token) || strings.EqualFold(s, n.label) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("sequencer: unknown write target %q", s)
}

// Operations are the steps selected for one run. They are captured when the
// run starts and not changed by the caller afterwards.
type Operations struct {
	Scan   bool
	Merge  bool
	Erase  bool
	Write  bool
	Verify bool
}

const (
	tagScan   = "[Scan]"
	tagMerge  = "[Merge]"
	tagErase  = "[Erase]"
	tagVerify = "[Verify]"
)

// Tags renders the selection as the comma separated tag list used by
// operation presets, e.g. "[Scan], [WriteToSPIFlash]". The write tag depends
// on target.
func (o Operations) Tags(target Target) string {
	var tags []string
	if o.Scan {
		tags = append(tags, tagScan)
	}
	if o.Merge {
		tags = append(tags, tagMerge)
	}
	if o.Erase {
		tags = append(tags, tagErase)
	}
	if o.Write {
		tags = append(tags, targetTable[target].op)
	}
	if o.Verify {
		tags = append(tags, tagVerify)
	}
	return strings.Join(tags, ", ")
}

// ParseTags decodes a tag list produced by Tags. Unknown tags are ignored.
// The returned target is Device unless a write tag names another one.
func ParseTags(list string) (Operations, Target) {
	var ops Operations
	target := Device
	for _, tag := range strings.Split(list, ",") {
		tag = strings.TrimSpace(tag)
		switch {
		case strings.EqualFold(tag, tagScan):
			ops.Scan = true
		case strings.EqualFold(tag, tagMerge):
			ops.Merge = true
		case strings.EqualFold(tag, tagErase):
			ops.Erase = true
		case strings.EqualFold(tag, tagVerify):
			ops.Verify = true
		default:
			for t, n := range targetTable {
				if strings.EqualFold(tag, n.op) {
					ops.Write = true
					target = t
				}
			}
		}
	}
	return ops, target
}
