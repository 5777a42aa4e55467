package undervolt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEncodeOffsetKnownValues(t *testing.T) {
	tests := []struct {
		name  string
		plane Plane
		mv    float64
		want  uint64
	}{
		{"core zero", PlaneCore, 0, 0x8000001100000000},
		{"core -50", PlaneCore, -50, 0x80000011f9a00000},
		{"core -150", PlaneCore, -150, 0x80000011ecc00000},
		{"gpu -125", PlaneGPU, -125, 0x80000111f0000000},
		{"cache -150", PlaneCache, -150, 0x80000211ecc00000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := encodeOffset(tc.plane, tc.mv, 1.024, false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncodeOffsetSelect(t *testing.T) {
	tests := []struct {
		plane Plane
		want  uint64
	}{
		{PlaneCore, 0x8000001000000000},
		{PlaneGPU, 0x8000011000000000},
		{PlaneCache, 0x8000021000000000},
	}
	for _, tc := range tests {
		got, err := encodeOffsetSelect(tc.plane)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := encodeOffsetSelect(Plane(9))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecodeOffset(t *testing.T) {
	assert.Equal(t, -49.8046875, decodeOffset(0x80000011f9a00000, 1.024))
	assert.Equal(t, 49.8046875, decodeOffset(51<<21, 1.024))
	assert.Zero(t, decodeOffset(0, 1.024))
}

func TestEncodeOffsetPolicy(t *testing.T) {
	_, err := encodeOffset(PlaneCore, 25, 1.024, false)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorContains(t, err, "force")

	raw, err := encodeOffset(PlaneCore, 25, 1.024, true)
	require.NoError(t, err)
	assert.Equal(t, 25.390625, decodeOffset(raw, 1.024))

	_, err = encodeOffset(Plane(9), -50, 1.024, false)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestEncodeOffsetRange(t *testing.T) {
	// -1000 mV is exactly the lowest programmable step
	raw, err := encodeOffset(PlaneCore, -1000, 1.024, false)
	require.NoError(t, err)
	assert.Equal(t, -1000.0, decodeOffset(raw, 1.024))

	_, err = encodeOffset(PlaneCore, -1001, 1.024, false)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = encodeOffset(PlaneCore, 999, 1.024, true)
	assert.NoError(t, err)

	_, err = encodeOffset(PlaneCore, 1000, 1.024, true)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestOffsetRoundTrip(t *testing.T) {
	for mv := -1000; mv <= 999; mv++ {
		raw, err := encodeOffset(PlaneCore, float64(mv), 1.024, true)
		require.NoError(t, err)
		assert.InDelta(t, float64(mv), decodeOffset(raw, 1.024), 0.4883)
	}
}

func TestCoreCacheMismatch(t *testing.T) {
	core, cache, mismatch := coreCacheMismatch(map[Plane]float64{PlaneCore: -100, PlaneCache: -50})
	assert.True(t, mismatch)
	assert.Equal(t, -100.0, core)
	assert.Equal(t, -50.0, cache)

	_, _, mismatch = coreCacheMismatch(map[Plane]float64{PlaneCore: -100, PlaneCache: -100})
	assert.False(t, mismatch)
	_, _, mismatch = coreCacheMismatch(map[Plane]float64{PlaneCore: -100})
	assert.False(t, mismatch)
	_, _, mismatch = coreCacheMismatch(nil)
	assert.False(t, mismatch)
}

func TestReadOffsetProtocol(t *testing.T) {
	m := new(regsMock)
	sel, err := encodeOffsetSelect(PlaneCore)
	require.NoError(t, err)
	m.On("write", 0, uint32(0x150), sel).Return(nil).Once()
	m.On("read", 0, uint32(0x150)).Return(uint64(0xf9a00000), nil).Once()

	h := newTestHost(m, 0, 1)
	mv, err := h.ReadOffset(PlaneCore)
	require.NoError(t, err)
	assert.Equal(t, -49.8046875, mv)
	m.AssertExpectations(t)
}

func TestSetOffsetWritesEveryCPU(t *testing.T) {
	m := new(regsMock)
	raw, err := encodeOffset(PlaneGPU, -125, 1.024, false)
	require.NoError(t, err)
	sel, err := encodeOffsetSelect(PlaneGPU)
	require.NoError(t, err)

	m.On("write", 0, uint32(0x150), raw).Return(nil).Once()
	m.On("write", 1, uint32(0x150), raw).Return(nil).Once()
	m.On("write", 0, uint32(0x150), sel).Return(nil).Once()
	m.On("read", 0, uint32(0x150)).Return(raw, nil).Once()

	h := newTestHost(m, 0, 1)
	require.NoError(t, h.SetOffset(PlaneGPU, -125, false))
	m.AssertExpectations(t)
}

func TestSetOffsetReadBackMismatch(t *testing.T) {
	m := new(regsMock)
	m.On("write", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("read", 0, uint32(0x150)).Return(uint64(0), nil)

	h := newTestHost(m)
	err := h.SetOffset(PlaneCore, -100, false)
	assert.ErrorContains(t, err, "did not stick")
}

func FuzzOffsetCodec(f *testing.F) {
	for _, seed := range []float64{0, -50, -999.99, 12.5, -1000} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, mv float64) {
		raw, err := encodeOffset(PlaneCore, mv, 1.024, true)
		if err != nil {
			return
		}
		got := decodeOffset(raw, 1.024)
		if diff := math.Abs(got - mv); diff > 0.5/1.024+1e-9 {
			t.Fatalf("offset %v decoded to %v, off by %v", mv, got, diff)
		}
	})
}
