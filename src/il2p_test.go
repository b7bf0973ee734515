package borzoi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestIL2PScrambleRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var block = rapid.SliceOfN(rapid.Byte(), 1, 255).Draw(t, "block")
		assert.Equal(t, block, il2pDescrambleBlock(il2pScrambleBlock(block)))
	})
}

func TestIL2PHeaderFieldRoundTrip(t *testing.T) {
	var hdr = make([]byte, il2pHeaderSize)

	il2pSetUI(hdr, 1)
	il2pSetPID(hdr, 0xf)
	il2pSetControl(hdr, 0x55)
	il2pSetFECLevel(hdr, 1)
	il2pSetHdrType(hdr, 1)
	il2pSetCount(hdr, 1023)

	assert.Equal(t, 1, il2pGetUI(hdr))
	assert.Equal(t, 0xf, il2pGetPID(hdr))
	assert.Equal(t, 0x55, il2pGetControl(hdr))
	assert.Equal(t, 1, il2pGetFECLevel(hdr))
	assert.Equal(t, 1, il2pGetHdrType(hdr))
	assert.Equal(t, 1023, il2pGetCount(hdr))
}

func TestIL2PPIDTranslation(t *testing.T) {
	// The common cases must survive the 4 bit squeeze.
	for _, pid := range []byte{0x01, 0x06, 0x07, 0x08, 0xcc, 0xcd, 0xce, 0xcf, 0xf0} {
		var squeezed = il2pEncodePID(pid)
		require.GreaterOrEqual(t, squeezed, 0)
		assert.Equal(t, pid, il2pDecodePID(squeezed))
	}

	// Something exotic cannot, and forces a type 0 header.
	assert.Equal(t, -1, il2pEncodePID(0x42))
}

func TestIL2PPayloadComputeInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var size = rapid.IntRange(1, il2pMaxPayloadSize).Draw(t, "size")
		var maxFEC = rapid.Bool().Draw(t, "maxFEC")

		var p, encoded = il2pPayloadCompute(size, maxFEC)
		require.Greater(t, encoded, 0)

		assert.Equal(t, size,
			p.smallBlockCount*p.smallBlockSize+p.largeBlockCount*p.largeBlockSize)
		assert.Equal(t, p.payloadBlockCount, p.smallBlockCount+p.largeBlockCount)
		assert.Contains(t, []int{2, 4, 6, 8, 16}, p.paritySymbolsPerBlock)
		if p.largeBlockCount > 0 {
			assert.LessOrEqual(t, p.largeBlockSize+p.paritySymbolsPerBlock, 255)
		}
		assert.LessOrEqual(t, p.smallBlockSize+p.paritySymbolsPerBlock, 255)
		assert.Equal(t, encoded, size+p.payloadBlockCount*p.paritySymbolsPerBlock)
	})
}

func TestIL2PPayloadRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var payload = rapid.SliceOfN(rapid.Byte(), 1, 600).Draw(t, "payload")
		var maxFEC = rapid.Bool().Draw(t, "maxFEC")

		var enc = il2pEncodePayload(payload, maxFEC)
		require.NotNil(t, enc)

		var corrected = 0
		var got = il2pDecodePayload(enc, len(payload), maxFEC, &corrected)
		require.Equal(t, payload, got)
		assert.Zero(t, corrected)
	})
}

func TestIL2PDecodeRSRejectsPaddingCorrections(t *testing.T) {
	// A "correction" landing in the implicit zero padding means the
	// decoder was fooled; it must be treated as unrecoverable.
	var data = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	var parity = il2pEncodeRS(data, 2)
	var block = append(append([]byte{}, data...), parity...)

	var out, e = il2pDecodeRS(block, 2)
	require.Equal(t, 0, e)
	assert.Equal(t, data, out)

	// Two corrupted symbols exceed what 2 parity symbols can fix.
	block[0] ^= 0xff
	block[4] ^= 0xff
	_, e = il2pDecodeRS(block, 2)
	assert.Equal(t, -1, e)
}

func TestIL2PHammingCRC(t *testing.T) {
	var frame = buildTestFrame("APRS", "N0CALL", "check me")
	var enc = il2pCRCEncode(fcsCalc(frame))

	assert.True(t, il2pCRCCheck(frame, enc[:]))

	// A single flipped bit in each byte is corrected by Hamming.
	var damaged = enc
	for i := range damaged {
		damaged[i] ^= 0x40
	}
	assert.True(t, il2pCRCCheck(frame, damaged[:]))

	// A different frame does not match.
	assert.False(t, il2pCRCCheck([]byte("other"), enc[:]))
}

// il2pTestFrame builds a UI frame with proper v2 command polarity so
// the type 1 header translation is exact.
func il2pTestFrame(info string) []byte {
	var frame = buildTestFrame("APRS", "N0CALL", info)
	frame[6] |= 0x80 // Command: dest C bit set.
	return frame
}

func il2pFeed(rx *Receiver, stream []byte) {
	// A trailing byte flushes the delayed decode state.
	var bits = IL2PByteStreamBits(append(append([]byte{}, stream...), 0x00))
	for _, b := range bits {
		rx.RecBit(0, 0, 0, b, false)
		rx.AgeCandidates(0)
	}
}

func TestIL2PType1RoundTrip(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	var frame = il2pTestFrame("il2p type one")
	var stream, err = IL2PEncodeFrame(frame, false, false)
	require.NoError(t, err)

	il2pFeed(rx, stream)
	settle(rx)

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
	assert.Equal(t, FECIL2P, d.FECType)
	assert.Equal(t, Retry(0), d.Retries)
}

func TestIL2PType0RoundTrip(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	// A digipeater path forces transparent encapsulation.
	var frame []byte
	frame = append(frame, testAddr("APRS", 0, false)...)
	frame = append(frame, testAddr("N0CALL", 0, false)...)
	frame = append(frame, testAddr("WIDE1", 1, true)...)
	frame = append(frame, 0x03, 0xf0)
	frame = append(frame, "via digi"...)

	var stream, err = IL2PEncodeFrame(frame, false, false)
	require.NoError(t, err)

	il2pFeed(rx, stream)
	settle(rx)

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
	assert.Equal(t, FECIL2P, d.FECType)
}

func TestIL2PCorrectsCorruptedPayload(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	var frame = il2pTestFrame("correct me please")
	var stream, err = IL2PEncodeFrame(frame, true, false)
	require.NoError(t, err)

	// One corrupted byte inside the payload region: sync(3) +
	// header(15) puts the payload at offset 18.
	stream[20] ^= 0x5a

	il2pFeed(rx, stream)
	settle(rx)

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
	assert.Equal(t, FECIL2P, d.FECType)
	assert.Equal(t, Retry(1), d.Retries)
}

func TestIL2PTrailingCRCRoundTrip(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	cfg.Chans[0].IL2PCRC = true

	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	var frame = il2pTestFrame("with trailing crc")
	var stream, err = IL2PEncodeFrame(frame, false, true)
	require.NoError(t, err)

	il2pFeed(rx, stream)
	settle(rx)

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
}

func TestIL2PReversePolarity(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	var frame = il2pTestFrame("upside down")
	var stream, err = IL2PEncodeFrame(frame, false, false)
	require.NoError(t, err)

	// Invert every bit, as a transmitter with swapped mark and
	// space would.
	var bits = IL2PByteStreamBits(append(append([]byte{}, stream...), 0x00))
	for _, b := range bits {
		rx.RecBit(0, 0, 0, b^1, false)
		rx.AgeCandidates(0)
	}
	settle(rx)

	var d = nextDelivery(t, q)
	assert.Equal(t, frame, d.Packet.Frame())
}

func TestIL2PGarbageDoesNotSync(t *testing.T) {
	var cfg = testConfig(1, 1, RetryNone)
	var q = NewDeliveryQueue(4)
	var rx = NewReceiver(cfg, q)
	defer rx.Close()

	// Alternating bits never match the sync word closely enough.
	for i := 0; i < 1000; i++ {
		rx.RecBit(0, 0, 0, i&1, false)
		rx.AgeCandidates(0)
	}
	settle(rx)

	noDelivery(t, q)
}
