package battery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedADC uint16

func (a fixedADC) Get() uint16 { return uint16(a) }

func TestPercent(t *testing.T) {
	for _, tc := range []struct {
		v    float32
		want uint8
	}{
		{3.0, 0},
		{3.3, 0},
		{3.75, 50},
		{4.2, 100},
		{4.35, 100},
	} {
		assert.Equal(t, tc.want, Percent(tc.v, 3.3, 4.2), "%vV", tc.v)
	}
	assert.Equal(t, uint8(0), Percent(4, 4.2, 3.3), "inverted range")
}

func TestADCMonitor(t *testing.T) {
	// 1.875V at the pin is 3.75V at the battery.
	m := NewADCMonitor(fixedADC(37236))
	assert.InDelta(t, 3.75, m.Voltage(), 0.01)
	level, err := m.BatteryLevel()
	require.NoError(t, err)
	assert.InDelta(t, 50, level, 1)
}

func TestSysfsMonitor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capacity")

	m, err := NewSysfsMonitor(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path())

	_, err = m.BatteryLevel()
	assert.Error(t, err)

	for _, tc := range []struct {
		content string
		want    uint8
	}{
		{"87\n", 87},
		{"0", 0},
		{"104\n", 100},
	} {
		require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
		level, err := m.BatteryLevel()
		require.NoError(t, err)
		assert.Equal(t, tc.want, level)
	}

	require.NoError(t, os.WriteFile(path, []byte("full\n"), 0o644))
	_, err = m.BatteryLevel()
	assert.Error(t, err)
}
