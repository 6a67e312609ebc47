package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want Target
	}{
		{"fpga", Device},
		{"FPGA", Device},
		{"flash", Flash},
		{"SPI Flash", Flash},
		{" disk ", DiskFile},
		{"disk file", DiskFile},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseTarget("eeprom")
	assert.Error(t, err)
}

func TestTargetNames(t *testing.T) {
	assert.Equal(t, "SPI Flash", Flash.String())
	assert.Equal(t, "flash", Flash.Token())
	assert.Equal(t, "Target(7)", Target(7).String())
	assert.Empty(t, Target(7).Token())
}

func TestOperationTags(t *testing.T) {
	ops := Operations{Scan: true, Merge: true, Write: true, Verify: true}
	tags := ops.Tags(Flash)
	assert.Equal(t, "[Scan], [Merge], [WriteToSPIFlash], [Verify]", tags)

	gotOps, gotTarget := ParseTags(tags)
	assert.Equal(t, ops, gotOps)
	assert.Equal(t, Flash, gotTarget)
}

func TestParseTagsIgnoresUnknown(t *testing.T) {
	ops, target := ParseTags("[erase],,[Bogus], [WriteToDisk]")
	assert.Equal(t, Operations{Erase: true, Write: true}, ops)
	assert.Equal(t, DiskFile, target)

	ops, target = ParseTags("")
	assert.Equal(t, Operations{}, ops)
	assert.Equal(t, Device, target)
}
