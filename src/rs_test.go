package borzoi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func rsRoundTrip(t *testing.T, codec *rs, corrupt []int) int {
	t.Helper()

	var block = make([]byte, codec.nn)
	for i := 0; i < codec.nn-codec.nroots; i++ {
		block[i] = byte(i * 7)
	}
	codec.encode(block[:codec.nn-codec.nroots], block[codec.nn-codec.nroots:])

	var want = append([]byte{}, block...)
	for _, pos := range corrupt {
		block[pos] ^= 0xa5
	}

	var corrected = codec.decode(block, nil)
	if corrected >= 0 {
		assert.Equal(t, want, block)
	}
	return corrected
}

func TestRSNoErrors(t *testing.T) {
	for i := range fx25Codecs {
		assert.Equal(t, 0, rsRoundTrip(t, fx25Codecs[i].rs, nil))
	}
}

func TestRSCorrectsUpToHalfNroots(t *testing.T) {
	for i := range fx25Codecs {
		var codec = fx25Codecs[i].rs
		var t2 = codec.nroots / 2

		var positions []int
		for k := 0; k < t2; k++ {
			positions = append(positions, 3+k*5)
		}
		assert.Equal(t, t2, rsRoundTrip(t, codec, positions),
			"nroots=%d should correct %d errors", codec.nroots, t2)
	}
}

func TestRSBurstError(t *testing.T) {
	// Four consecutive corrupted bytes, the FX.25 seed scenario.
	var codec = fx25Codecs[0].rs
	assert.Equal(t, 4, rsRoundTrip(t, codec, []int{40, 41, 42, 43}))
}

func TestRSTooManyErrors(t *testing.T) {
	var codec = fx25Codecs[0].rs // 16 check bytes, corrects 8.
	var positions []int
	for k := 0; k < 12; k++ {
		positions = append(positions, 10+k*3)
	}
	assert.Equal(t, -1, rsRoundTrip(t, codec, positions))
}

func TestRSReportsErrorLocations(t *testing.T) {
	var codec = fx25Codecs[0].rs
	var block = make([]byte, codec.nn)
	codec.encode(block[:codec.nn-codec.nroots], block[codec.nn-codec.nroots:])

	block[17] ^= 0x55
	block[200] ^= 0x0f

	var locs = make([]int, codec.nroots)
	var corrected = codec.decode(block, locs)
	require.Equal(t, 2, corrected)
	assert.ElementsMatch(t, []int{17, 200}, locs[:corrected])
}

func TestRSRandomErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var codec = fx25Codecs[rapid.IntRange(0, 2).Draw(t, "codec")].rs

		var block = make([]byte, codec.nn)
		var data = rapid.SliceOfN(rapid.Byte(), codec.nn-codec.nroots, codec.nn-codec.nroots).Draw(t, "data")
		copy(block, data)
		codec.encode(block[:codec.nn-codec.nroots], block[codec.nn-codec.nroots:])
		var want = append([]byte{}, block...)

		var nerr = rapid.IntRange(0, codec.nroots/2).Draw(t, "nerr")
		var positions = rapid.SliceOfNDistinct(rapid.IntRange(0, codec.nn-1), nerr, nerr, rapid.ID).Draw(t, "positions")
		for _, pos := range positions {
			// XOR with something nonzero so it really is an error.
			block[pos] ^= byte(rapid.IntRange(1, 255).Draw(t, "xor"))
		}

		var corrected = codec.decode(block, nil)
		require.Equal(t, nerr, corrected)
		require.Equal(t, want, block)
	})
}
