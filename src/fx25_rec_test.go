package borzoi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagTableIntegrity(t *testing.T) {
	// Any two distinct tags differ in exactly 32 of 64 bits.
	for j := 0; j < 16; j++ {
		for k := 0; k < 16; k++ {
			var dist = popcount64(fx25Tags[j].value ^ fx25Tags[k].value)
			if j == k {
				assert.Equal(t, 0, dist)
			} else {
				assert.Equal(t, 32, dist, "tags %d and %d", j, k)
			}
		}
	}

	for j := ctagMin; j <= ctagMax; j++ {
		assert.Equal(t, fx25GetNRoots(j), fx25Tags[j].nBlockRadio-fx25Tags[j].kDataRadio)
		assert.Equal(t, fx25GetNRoots(j), fx25Tags[j].nBlockRS-fx25Tags[j].kDataRS)
		assert.Equal(t, fx25BlockSize, fx25Tags[j].nBlockRS)
	}
}

func popcount64(v uint64) int {
	var n int
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func TestTagMatchTolerance(t *testing.T) {
	var tag = fx25Tags[0x02].value

	assert.Equal(t, 0x02, fx25TagFindMatch(tag))

	// Within the Hamming tolerance of 8 bits.
	assert.Equal(t, 0x02, fx25TagFindMatch(tag^0xff))
	assert.Equal(t, 0x02, fx25TagFindMatch(tag^(0x0f<<60|0x0f)))

	// Way off.
	assert.Equal(t, -1, fx25TagFindMatch(0))
	assert.Equal(t, -1, fx25TagFindMatch(^uint64(0)))
}

func TestPickMode(t *testing.T) {
	// Specific tags by number.
	assert.Equal(t, 1, fx25PickMode(100+1, 239))
	assert.Equal(t, -1, fx25PickMode(100+1, 240))
	assert.Equal(t, 5, fx25PickMode(100+5, 223))
	assert.Equal(t, 9, fx25PickMode(100+9, 191))

	// By check byte count: smallest fitting tag wins.
	assert.Equal(t, 4, fx25PickMode(16, 32))
	assert.Equal(t, 3, fx25PickMode(16, 64))
	assert.Equal(t, 2, fx25PickMode(16, 128))
	assert.Equal(t, 1, fx25PickMode(16, 239))
	assert.Equal(t, -1, fx25PickMode(16, 240))

	assert.Equal(t, 8, fx25PickMode(32, 32))
	assert.Equal(t, 11, fx25PickMode(64, 64))

	// Automatic.
	assert.Equal(t, 0x04, fx25PickMode(1, 32))
	assert.Equal(t, 0x03, fx25PickMode(1, 64))
	assert.Equal(t, 0x06, fx25PickMode(1, 128))
	assert.Equal(t, 0x09, fx25PickMode(1, 191))
	assert.Equal(t, 0x05, fx25PickMode(1, 223))
	assert.Equal(t, 0x01, fx25PickMode(1, 239))
	assert.Equal(t, -1, fx25PickMode(1, 240))

	// Off means off.
	assert.Equal(t, -1, fx25PickMode(0, 10))
}

func fx25Receiver(t *testing.T) (*Receiver, *DeliveryQueue) {
	t.Helper()
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	t.Cleanup(rx.Close)
	return rx, q
}

func TestFX25CleanRoundTrip(t *testing.T) {
	var rx, q = fx25Receiver(t)

	var frame = buildTestFrame("APRS", "N0CALL", "test")
	var stream, err = FX25EncodeFrame(frame, 100+2)
	require.NoError(t, err)

	feedRawBits(rx, EncodeByteStreamBits(stream))
	settle(rx)

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
	assert.Equal(t, FECFX25, d.FECType)
	assert.Equal(t, Retry(0), d.Retries)
	noDelivery(t, q)
}

func TestFX25CorrectsBurstError(t *testing.T) {
	var rx, q = fx25Receiver(t)

	var frame = buildTestFrame("APRS", "N0CALL", "test")
	var stream, err = FX25EncodeFrame(frame, 100+2)
	require.NoError(t, err)

	// Corrupt 4 consecutive bytes inside the codeblock, in the flag
	// padding past the enclosed frame.  The plain HDLC decoder still
	// sees a clean copy, but FX.25 is busy at that point, so it only
	// fills the candidate slot and the FX.25 copy replaces it.
	for i := 100; i < 104; i++ {
		stream[8+i] ^= 0xff
	}

	feedRawBits(rx, EncodeByteStreamBits(stream))
	settle(rx)

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
	assert.Equal(t, FECFX25, d.FECType)
	assert.Equal(t, Retry(4), d.Retries)
}

func TestFX25TooManyErrorsIsDropped(t *testing.T) {
	var rx, q = fx25Receiver(t)

	var frame = buildTestFrame("APRS", "N0CALL", "test")
	var stream, err = FX25EncodeFrame(frame, 100+2)
	require.NoError(t, err)

	// Tag 0x02 has 16 check bytes: 9 corrupted bytes is beyond
	// repair.  Also clobber the enclosed frame region so the plain
	// decoder cannot rescue it.
	for i := 0; i < 9; i++ {
		stream[8+3+i*13] ^= 0xa5
	}

	feedRawBits(rx, EncodeByteStreamBits(stream))
	settle(rx)

	noDelivery(t, q)
}

func TestFX25BusyDuringBlockReception(t *testing.T) {
	var rx, _ = fx25Receiver(t)

	var frame = buildTestFrame("APRS", "N0CALL", "test")
	var stream, err = FX25EncodeFrame(frame, 100+2)
	require.NoError(t, err)

	assert.False(t, rx.FX25Busy(0))

	var bits = EncodeByteStreamBits(stream)
	// Stop partway through the data section: the decoder has seen
	// the tag and is now gathering.
	for _, b := range bits[:len(bits)/2] {
		rx.RecBit(0, 0, 0, b, false)
	}
	assert.True(t, rx.FX25Busy(0))

	for _, b := range bits[len(bits)/2:] {
		rx.RecBit(0, 0, 0, b, false)
	}
	assert.False(t, rx.FX25Busy(0))
}

func TestFX25UnstuffRejectsGarbage(t *testing.T) {
	// No leading flag.
	assert.Nil(t, fx25Unstuff(0, 0, []byte{0x55, 0x7e}))

	// Seven ones in a row inside the data.
	assert.Nil(t, fx25Unstuff(0, 0, []byte{0x7e, 0xff, 0xff, 0x7e}))

	// Terminating flag missing entirely.
	assert.Nil(t, fx25Unstuff(0, 0, []byte{0x7e, 0x32, 0x44}))
}
