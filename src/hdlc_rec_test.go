package borzoi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCleanFrameRoundTrip(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	var frame = buildTestFrame("APRS", "N0CALL", "test")
	feedRawBits(rx, EncodeFrameBits(frame, 2, 1))

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
	assert.Equal(t, RetryNone, d.Retries)
	assert.Equal(t, FECNone, d.FECType)
	assert.Equal(t, 0, d.Channel)
}

func TestMinimumLengthFrameDecodes(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	// 14 address bytes + 1 control: the smallest legal frame.
	var frame []byte
	frame = append(frame, testAddr("APRS", 0, false)...)
	frame = append(frame, testAddr("N0CALL", 0, true)...)
	frame = append(frame, 0x03)
	require.Len(t, frame, MinFrameLen-2)

	feedRawBits(rx, EncodeFrameBits(frame, 2, 1))

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
}

func TestShortCaptureIsDiscarded(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	// One byte between flags is nowhere near a frame.
	var s hdlcBitStream
	s.sendFlag()
	s.sendByte(0x55)
	s.sendFlag()
	feedRawBits(rx, s.nrzi())
	settle(rx)

	noDelivery(t, q)
}

func TestAbortDiscardsFrameInProgress(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	var first = buildTestFrame("APRS", "N0CALL", "doomed")
	var bits = EncodeFrameBits(first, 2, 1)

	// Cut the first frame off halfway and hold the line steady for
	// eight bit times: NRZI reads that as a run of ones, an abort.
	bits = bits[:len(bits)/2]
	var level = bits[len(bits)-1]
	for i := 0; i < 8; i++ {
		bits = append(bits, level)
	}

	var second = buildTestFrame("APRS", "N0CALL", "survivor")
	bits = append(bits, EncodeFrameBits(second, 2, 1)...)

	feedRawBits(rx, bits)

	var d = nextDelivery(t, q)
	assert.Equal(t, second, d.Packet.Frame())
	noDelivery(t, q)
}

func TestDCDFollowsFlagsAndOnes(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	var transitions []bool
	rx.SetPTT(func(channel int, on bool) {
		assert.Equal(t, 0, channel)
		transitions = append(transitions, on)
	})

	assert.False(t, rx.DataDetectAny(0))

	// Four flags in a row turn carrier detect on.
	var s hdlcBitStream
	for i := 0; i < 4; i++ {
		s.sendFlag()
	}
	feedRawBits(rx, s.nrzi())
	assert.True(t, rx.DataDetectAny(0))

	// A long run of ones (no transitions on the line) turns it off.
	var idle = make([]int, 16)
	for i := range idle {
		idle[i] = 1
	}
	feedRawBits(rx, idle)
	assert.False(t, rx.DataDetectAny(0))

	assert.Equal(t, []bool{true, false}, transitions)
}

func TestZeroBERIsIdentity(t *testing.T) {
	var frame = buildTestFrame("APRS", "N0CALL", "ber test")
	var bits = EncodeFrameBits(frame, 2, 1)

	var cfg = testConfig(1, 1, RetryNone)
	cfg.RecvBER = 0

	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	feedRawBits(rx, bits)

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
	assert.Equal(t, RetryNone, d.Retries)
}

func TestBERInjectionCorruptsDeterministically(t *testing.T) {
	// With a heavy error rate nothing should survive, and two runs
	// must behave identically because the PRNG is our own.
	var run = func() int {
		var cfg = testConfig(1, 1, RetryNone)
		cfg.RecvBER = 0.2

		var q = NewDeliveryQueue(64)
		var rx = NewReceiver(cfg, q)
		defer rx.Close()

		feedRawBits(rx, EncodeFrameBits(buildTestFrame("APRS", "N0CALL", "noisy"), 2, 1))
		settle(rx)

		return len(q.ch)
	}

	var first = run()
	assert.Equal(t, first, run())
	assert.Equal(t, 0, first)
}

func TestDescrambleRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Scramble with the G3RUH polynomial, descramble, compare.
		var bits = rapid.SliceOfN(rapid.IntRange(0, 1), 64, 256).Draw(t, "bits")

		var txState, rxState int
		var got []int
		for _, b := range bits {
			// Transmit side: out = in ^ x^12 ^ x^17.
			var tx = (b ^ (txState >> 11) ^ (txState >> 16)) & 1
			txState = (txState << 1) | tx
			got = append(got, descramble(tx, &rxState))
		}

		// After the 17 bit register fills, output equals input.
		assert.Equal(t, bits[17:], got[17:])
	})
}

func TestScrambledFrameRoundTrip(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	cfg.Chans[0].Modem = ModemScramble

	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	var frame = buildTestFrame("APRS", "N0CALL", "scrambled")

	// NRZI first, then scramble, like a G3RUH modem does.  Extra
	// leading flags cover the descrambler register filling up.
	var s hdlcBitStream
	for i := 0; i < 4; i++ {
		s.sendFlag()
	}
	for _, b := range frame {
		s.sendByte(b)
	}
	var fcs = fcsCalc(frame)
	s.sendByte(byte(fcs))
	s.sendByte(byte(fcs >> 8))
	s.sendFlag()

	var txState int
	for _, raw := range s.nrzi() {
		var tx = (raw ^ (txState >> 11) ^ (txState >> 16)) & 1
		txState = (txState << 1) | tx
		rx.RecBit(0, 0, 0, tx, true)
		rx.AgeCandidates(0)
	}

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
}
