package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Extract HDLC frames from a stream of bits.
 *
 * Description:	One state machine per (channel, subchannel, slicer)
 *		triple, all owned by the Receiver.  Each demodulated
 *		bit is optionally descrambled, NRZI decoded, pushed
 *		through the flag/abort pattern detectors, and appended
 *		to the current raw bit buffer.  When a closing flag
 *		arrives the buffer is handed to the validator, which
 *		may retry the decode with bit flips.
 *
 *---------------------------------------------------------------*/

/*
 * Undo G3RUH data scrambling for 9600 baud and friends.
 */
func descramble(in int, state *int) int {
	var out = (in ^ (*state >> 16) ^ (*state >> 11)) & 1
	*state = (*state << 1) | (in & 1)
	return out
}

/*
 * Current state of one HDLC decoder.
 */
type hdlcState struct {
	prevRaw bool // Previous bit so we can look for transitions.

	lfsr        int // Descrambler shift register.
	prevDescram int // Previous descrambled bit.

	patDet byte // 8 bit pattern detector shift register.

	flag4Det uint32 // Last 32 data bits, for carrier detect patterns.

	oacc byte // Accumulator for building up an octet.

	olen int // Number of bits in oacc.  When this reaches 8, oacc
	// is copied to the frame buffer and olen is zeroed.
	// -1 is a special case meaning bits should not be
	// accumulated, e.g. after an abort.

	frameBuf [MaxFrameLen]byte // One frame being accumulated.
	frameLen int               // Number of octets in frameBuf.

	rrbb *rrbb // Raw bits of the frame in progress.

	// EAS SAME state; used only when the channel modem type is EAS.
	easAcc             uint64 // Most recent 64 bits received.
	easGathering       bool   // Message decode in progress.
	easPlusFound       bool   // "+" seen, end of geographical area list.
	easFieldsAfterPlus int    // Number of "-" characters after the "+".
}

// RecBit feeds one demodulated raw bit into the decoder for the given
// (channel, subchannel, slicer) triple.  isScrambled selects G3RUH
// descrambling ahead of the NRZI decode.  This is the hot path; it is
// called once per symbol per slicer and must only ever be called from
// the channel's device goroutine.
func (rx *Receiver) RecBit(channel, subchan, slice, raw int, isScrambled bool) {
	rx.RecBitClocked(channel, subchan, slice, raw, isScrambled, nil, nil)
}

// RecBitClocked is RecBit for demodulators that track their PLL drift.
// pllNudgeTotal and pllSymbolCount are reset at each frame start; at
// frame end they yield the symbol clock speed error that travels with
// the captured bits.
func (rx *Receiver) RecBitClocked(channel, subchan, slice, raw int, isScrambled bool,
	pllNudgeTotal *int64, pllSymbolCount *int) {
	var H = rx.hdlc[channel][subchan][slice]
	if H == nil {
		logger.Error("internal error: bit for unconfigured decoder",
			"channel", channel, "subchannel", subchan, "slice", slice)
		return
	}

	// A configured receive bit error rate artificially clobbers
	// bits so recovery strategies can be measured.  Deterministic
	// PRNG, so test corpora reproduce everywhere.
	if rx.cfg.RecvBER != 0 && rx.rng.chance(rx.cfg.RecvBER) {
		raw ^= 1
	}

	// EAS does not use HDLC.
	if rx.cfg.Chans[channel].Modem == ModemEAS {
		rx.easRecBit(channel, subchan, slice, raw)
		return
	}

	/*
	 * Using NRZI encoding,
	 *   a '0' bit is represented by an inversion since the previous bit,
	 *   a '1' bit is represented by no change.
	 */
	var rawBit = raw != 0
	var dbit bool
	if isScrambled {
		var ds = descramble(raw, &H.lfsr)
		dbit = ds == H.prevDescram
		H.prevDescram = ds
		H.prevRaw = rawBit
	} else {
		dbit = rawBit == H.prevRaw
		H.prevRaw = rawBit
	}

	// The FX.25 decoder sees the same stream, after NRZI and any
	// descrambling.  IL2P does not use NRZI so it gets the raw bit.
	rx.fx25RecBit(channel, subchan, slice, boolToBit(dbit))
	rx.il2pRecBit(channel, subchan, slice, raw)

	/*
	 * Octets are sent LSB first.
	 * Shift the most recent 8 bits through the pattern detector.
	 */
	H.patDet >>= 1
	if dbit {
		H.patDet |= 0x80
	}

	H.flag4Det >>= 1
	if dbit {
		H.flag4Det |= 0x80000000
	}

	/*
	 * Data carrier detect from bit patterns: three flags in a row,
	 * or zeros followed by a flag, assert it; eight ones in a row
	 * clear it.
	 */
	if (H.flag4Det>>8) == 0x7e7e7e || (H.flag4Det>>8) == 0x7e0000 {
		rx.dcdChange(channel, subchan, slice, true)
	} else if H.patDet == 0xff {
		rx.dcdChange(channel, subchan, slice, false)
	}

	H.rrbb.appendBit(raw)

	switch {
	case H.patDet == 0x7e:
		/*
		 * The special pattern 01111110 marks the beginning and
		 * end of a frame.  Back the flag bits out of the raw
		 * buffer; if enough whole octets remain it is a
		 * candidate for decoding.
		 */
		H.rrbb.chop8()

		if H.rrbb.length() >= MinFrameLen*8 {
			// End of frame.
			if pllSymbolCount != nil && *pllSymbolCount > 0 {
				H.rrbb.speedError = float64(*pllNudgeTotal)*100.0/
					(256.0*256.0*256.0*256.0)/float64(*pllSymbolCount) + 0.02
			}
			H.rrbb.alevel = rx.audioLevel(channel, subchan)
			rx.recBlock(H.rrbb)
			// Now owned by the validator or deferred queue.
			H.rrbb = newRRBB(channel, subchan, slice, isScrambled, H.lfsr, H.prevDescram)
		} else {
			// Start of frame.
			if pllSymbolCount != nil {
				*pllNudgeTotal = 0
				*pllSymbolCount = -1 // Comes out better than 0.
			}
			H.rrbb.clear(isScrambled, H.lfsr, H.prevDescram)
		}

		H.olen = 0 // Allow accumulation of octets.
		H.frameLen = 0

		// Keep the last bit of the flag so the validator can
		// derive the first data bit.
		H.rrbb.appendBit(boolToBit(H.prevRaw))

	case H.patDet == 0xfe:
		/*
		 * Valid data will never have seven 1 bits in a row;
		 * this is an abort or loss of signal.
		 */
		H.olen = -1 // Stop accumulating octets.
		H.frameLen = 0
		H.rrbb.clear(isScrambled, H.lfsr, H.prevDescram)

	case (H.patDet & 0xfc) == 0x7c:
		/*
		 * Five '1' bits in a row followed by a '0': the '0'
		 * was added for bit stuffing.  Drop it.
		 */

	default:
		/*
		 * Accumulate bits into octets and complete octets into
		 * the frame buffer.
		 */
		if H.olen >= 0 {
			H.oacc >>= 1
			if dbit {
				H.oacc |= 0x80
			}
			H.olen++

			if H.olen == 8 {
				H.olen = 0
				if H.frameLen < MaxFrameLen {
					H.frameBuf[H.frameLen] = H.oacc
					H.frameLen++
				}
			}
		}
	}
}

func boolToBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

/*-------------------------------------------------------------------
 *
 * Name:        dcdChange
 *
 * Purpose:     Combine the DCD states of all subchannels and slicers
 *		into an overall busy state for the channel.
 *
 * Description:	The channel is busy if ANY of its decoders thinks it is
 *		receiving a signal.  Any change of the composite state
 *		is reported to the PTT layer so transmitters hold off.
 *
 *--------------------------------------------------------------------*/

func (rx *Receiver) dcdChange(channel, subchan, slice int, state bool) {
	if rx.compositeDCD[channel][subchan][slice] == state {
		return
	}

	var old = rx.DataDetectAny(channel)
	rx.compositeDCD[channel][subchan][slice] = state
	var now = rx.DataDetectAny(channel)

	if now != old && rx.ptt != nil {
		rx.ptt(channel, now)
	}
}

// DataDetectAny reports whether the radio channel currently sounds busy
// with packet data, i.e. whether any of its decoders has carrier detect
// asserted.  Transmit logic uses this to hold off while the channel is
// occupied.
func (rx *Receiver) DataDetectAny(channel int) bool {
	for sub := 0; sub < rx.cfg.Chans[channel].NumSubchan; sub++ {
		for slice := 0; slice < MaxSlicers; slice++ {
			if rx.compositeDCD[channel][sub][slice] {
				return true
			}
		}
	}
	return false
}
