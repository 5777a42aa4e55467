package throttlestop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgewhewell/undervolt/pkg/undervolt"
)

const sampleProfile = `[ThrottleStop]
NumProfiles=4
FIVRVoltageCPU3=4294860800
FIVRVoltageCPUCache3=4294860800
FIVRVoltageIntelGPU3=0xFFFF0000
PowerLimitSecondsTDP3=28
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ThrottleStop.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImport(t *testing.T) {
	offsets, err := Import(writeProfile(t, sampleProfile), 3)
	require.NoError(t, err)

	assert.Len(t, offsets, 6)
	assert.Equal(t, -101.5625, offsets[undervolt.PlaneCore])
	assert.Equal(t, -101.5625, offsets[undervolt.PlaneCache])
	assert.Equal(t, -62.5, offsets[undervolt.PlaneGPU])

	// planes the profile never mentions come back as explicit zeros
	assert.Zero(t, offsets[undervolt.PlaneUncore])
	assert.Zero(t, offsets[undervolt.PlaneAnalogIO])
	assert.Zero(t, offsets[undervolt.PlaneDigitalIO])
}

func TestImportMissingProfile(t *testing.T) {
	_, err := Import(writeProfile(t, sampleProfile), 2)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = Import(writeProfile(t, sampleProfile), -1)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestImportHeaderless(t *testing.T) {
	// early versions wrote the keys with no [ThrottleStop] header
	offsets, err := Import(writeProfile(t, "FIVRVoltageCPU1=4294860800\n"), 1)
	require.NoError(t, err)
	assert.Equal(t, -101.5625, offsets[undervolt.PlaneCore])
}

func TestImportBadFile(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "absent.ini"), 0)
	assert.ErrorIs(t, err, ErrParse)

	_, err = Import(writeProfile(t, "[ThrottleStop\nFIVRVoltageCPU0=1\n"), 0)
	assert.ErrorIs(t, err, ErrParse)

	_, err = Import(writeProfile(t, "[ThrottleStop]\nFIVRVoltageCPU0=notanumber\n"), 0)
	assert.ErrorIs(t, err, ErrParse)
}

func TestMillivolts(t *testing.T) {
	assert.Equal(t, -101.5625, Millivolts(4294860800))
	assert.Equal(t, -62.5, Millivolts(0xFFFF0000))
	assert.Equal(t, 62.5, Millivolts(0x10000))
	assert.Zero(t, Millivolts(0))
}
