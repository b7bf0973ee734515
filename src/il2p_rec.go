package borzoi

/*********************************************************************************
 *
 * Purpose:     Extract IL2P frames from a stream of bits.
 *
 * Description:	Runs in parallel with the HDLC framer and the FX.25
 *		decoder on every (channel, subchannel, slicer) triple.
 *		Unlike those, it works on the bit stream before NRZI
 *		decoding; the sync word matcher tolerates either
 *		polarity and inverts everything that follows when the
 *		transmitter's idea of mark and space was backwards.
 *
 *********************************************************************************/

import "math/bits"

type il2pRecState int

const (
	il2pSearching il2pRecState = iota // Looking for the sync word.
	il2pHeader                        // Gathering the header.
	il2pPayload                       // Gathering the payload, if any.
	il2pCRC                           // Gathering the trailing CRC bytes.
	il2pDecode                        // Everything collected.
)

type il2pContext struct {
	state il2pRecState

	// Most recent 24 bits for sync word matching, most recent in
	// the LSB.  The low 8 bits also accumulate header and payload
	// bytes.
	acc uint32

	bc int // Bit counter for byte accumulation.

	polarity bool // True if opposite of expected polarity.

	shdr [il2pHeaderSize + il2pHeaderParity]byte // Scrambled header with parity, as received.
	hc   int

	uhdr []byte // Header after FEC and unscrambling.

	eplen int // Number of encoded payload bytes to gather.

	spayload [il2pMaxEncodedPayload]byte // Scrambled and encoded payload as received.
	pc       int

	scrc [il2pCRCEncodedSize]byte // Received Hamming encoded CRC.
	cc   int

	corrected int // Symbols corrected by RS FEC so far.
}

// il2pRecBit feeds one raw bit, before NRZI decoding, to the IL2P
// decoder for the triple.  Contexts are allocated lazily.
func (rx *Receiver) il2pRecBit(channel, subchan, slice, rawBit int) {
	var F = rx.il2p[channel][subchan][slice]
	if F == nil {
		F = new(il2pContext)
		rx.il2p[channel][subchan][slice] = F
	}

	F.acc = (F.acc<<1 | uint32(rawBit&1)) & 0x00ffffff

	// byteReady collects 8 bits into a byte, honouring the polarity.
	byteReady := func() (byte, bool) {
		F.bc++
		if F.bc < 8 {
			return 0, false
		}
		F.bc = 0
		if F.polarity {
			return byte(^F.acc), true
		}
		return byte(F.acc), true
	}

	switch F.state {

	case il2pSearching:
		if bits.OnesCount32(F.acc^il2pSyncWord) <= 1 { // Allow a single bit mismatch.
			F.polarity = false
		} else if bits.OnesCount32((^F.acc&0x00ffffff)^il2pSyncWord) <= 1 {
			F.polarity = true
		} else {
			return
		}
		F.state = il2pHeader
		F.bc = 0
		F.hc = 0

	case il2pHeader:
		var b, ok = byteReady()
		if !ok {
			return
		}
		F.shdr[F.hc] = b
		F.hc++
		if F.hc < il2pHeaderSize+il2pHeaderParity {
			return
		}

		// Have all of the header.  Fix any errors and descramble.
		var uhdr, corrected = il2pClarifyHeader(F.shdr[:])
		if corrected < 0 {
			// Header failed the FEC check.
			F.state = il2pSearching
			return
		}
		F.uhdr = uhdr
		F.corrected = corrected

		// How much payload is expected?
		var _, eplen = il2pPayloadCompute(il2pGetCount(uhdr), il2pGetFECLevel(uhdr) != 0)

		logger.Debug("IL2P header accepted",
			"channel", channel, "subchannel", subchan, "slice", slice,
			"corrected", corrected, "payload", il2pGetCount(uhdr), "encoded", eplen)

		switch {
		case eplen >= 1:
			F.eplen = eplen
			F.pc = 0
			F.state = il2pPayload
		case eplen == 0:
			F.eplen = 0
			F.pc = 0
			if rx.cfg.Chans[channel].IL2PCRC {
				F.cc = 0
				F.state = il2pCRC
			} else {
				F.state = il2pDecode
			}
		default:
			logger.Debug("IL2P header invalid", "channel", channel)
			F.state = il2pSearching
		}

	case il2pPayload:
		var b, ok = byteReady()
		if !ok {
			return
		}
		F.spayload[F.pc] = b
		F.pc++
		if F.pc < F.eplen {
			return
		}
		if rx.cfg.Chans[channel].IL2PCRC {
			F.cc = 0
			F.state = il2pCRC
		} else {
			F.state = il2pDecode
		}

	case il2pCRC:
		var b, ok = byteReady()
		if !ok {
			return
		}
		F.scrc[F.cc] = b
		F.cc++
		if F.cc == il2pCRCEncodedSize {
			F.state = il2pDecode
		}

	case il2pDecode:
		// We get here after a good header and any payload has been
		// collected.  Processing is delayed by one bit but it makes
		// the logic cleaner; senders always have trailing bits.
		var frame = il2pDecodeHeaderPayload(F.uhdr, F.spayload[:F.pc], &F.corrected)

		if frame != nil && rx.cfg.Chans[channel].IL2PCRC &&
			!il2pCRCCheck(frame, F.scrc[:]) {
			logger.Debug("IL2P trailing CRC mismatch", "channel", channel)
			frame = nil
		}

		if frame != nil {
			rx.processRecFrame(channel, subchan, slice, frame,
				rx.audioLevel(channel, subchan), Retry(F.corrected), FECIL2P)
		}

		F.state = il2pSearching
	}
}
