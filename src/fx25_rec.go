package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Extract FX.25 codeblocks from a stream of bits.
 *
 * Description:	Runs in parallel with the HDLC framer on the same data
 *		bit stream.  A 64 bit shift register hunts for a
 *		correlation tag; a match starts gathering the expected
 *		number of data and check bytes, then the Reed-Solomon
 *		decoder repairs the block and the enclosed AX.25 frame
 *		is destuffed and validated.
 *
 *---------------------------------------------------------------*/

import "math/bits"

type fx25RecState int

const (
	fxTag fx25RecState = iota // Hunting for the correlation tag.
	fxData
	fxCheck
)

// fenceByte guards the end of the block buffer against overruns.
const fenceByte = 0x55

type fxContext struct {
	state      fx25RecState
	accum      uint64 // Bits accumulated for tag matching.
	ctagNum    int    // Matched correlation tag number.
	kDataRadio int    // Expected size of "data" sent over radio.
	coffs      int    // Starting offset of the check part.
	nroots     int    // Expected number of check bytes.
	dlen       int    // Accumulated data length.
	clen       int    // Accumulated check length.
	imask      byte   // Mask for storing the next bit.
	block      [fx25BlockSize + 1]byte
}

// fx25RecBit feeds one data bit, after NRZI and any descrambling, to
// the FX.25 decoder for the triple.  Contexts are allocated lazily.
func (rx *Receiver) fx25RecBit(channel, subchan, slice, dbit int) {
	var F = rx.fx[channel][subchan][slice]
	if F == nil {
		F = new(fxContext)
		rx.fx[channel][subchan][slice] = F
	}

	switch F.state {
	case fxTag:
		F.accum >>= 1
		if dbit != 0 {
			F.accum |= 1 << 63
		}

		var c = fx25TagFindMatch(F.accum)
		if c >= ctagMin && c <= ctagMax {
			F.ctagNum = c
			F.kDataRadio = fx25GetKDataRadio(c)
			F.nroots = fx25GetNRoots(c)
			F.coffs = fx25GetKDataRS(c)

			logger.Debug("FX.25 matched correlation tag",
				"channel", channel, "slice", slice, "tag", c,
				"bit_errors", bits.OnesCount64(F.accum^fx25GetTagValue(c)),
				"data", F.kDataRadio, "check", F.nroots)

			F.imask = 0x01
			F.dlen = 0
			F.clen = 0
			F.block = [fx25BlockSize + 1]byte{}
			F.block[fx25BlockSize] = fenceByte
			F.state = fxData
		}

	case fxData:
		if dbit != 0 {
			F.block[F.dlen] |= F.imask
		}
		F.imask <<= 1
		if F.imask == 0 {
			F.imask = 0x01
			F.dlen++
			if F.dlen >= F.kDataRadio {
				F.state = fxCheck
			}
		}

	case fxCheck:
		if dbit != 0 {
			F.block[F.coffs+F.clen] |= F.imask
		}
		F.imask <<= 1
		if F.imask == 0 {
			F.imask = 0x01
			F.clen++
			if F.clen >= F.nroots {
				rx.processRSBlock(channel, subchan, slice, F)

				F.ctagNum = -1
				F.accum = 0
				F.state = fxTag
			}
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	FX25Busy
 *
 * Purpose:	Is FX.25 reception currently in progress on a channel?
 *
 * Description:	A codeblock can trail up to 64 check bytes plus filler
 *		behind the enclosed frame's closing flag, long after
 *		the plain HDLC decoders on other slicers have finished.
 *		The arbiter defers duplicate removal while this is true
 *		so the corrected copy still takes part in the vote.
 *
 *--------------------------------------------------------------------*/

func (rx *Receiver) FX25Busy(channel int) bool {
	for sub := 0; sub < MaxSubchans; sub++ {
		for slice := 0; slice < MaxSlicers; slice++ {
			var F = rx.fx[channel][sub][slice]
			if F != nil && F.state != fxTag {
				return true
			}
		}
	}
	return false
}

/*-------------------------------------------------------------------
 *
 * Name:	processRSBlock
 *
 * Purpose:	Repair a fully gathered codeblock and extract the
 *		enclosed AX.25 frame.
 *
 *		<- - - - - - - - - 255 bytes total - - - - - - - - ->
 *		+--------------------+-------------+----------------+
 *		| dlen bytes "data"  |  zero fill  |  check bytes   |
 *		+--------------------+-------------+----------------+
 *
 *--------------------------------------------------------------------*/

func (rx *Receiver) processRSBlock(channel, subchan, slice int, F *fxContext) {
	if F.block[fx25BlockSize] != fenceByte {
		logger.Error("internal error: FX.25 block buffer overrun",
			"channel", channel, "slice", slice)
		return
	}

	var errLocs [fx25MaxCheck]int
	var codec = fx25GetRS(F.ctagNum)

	var corrected = codec.decode(F.block[:fx25BlockSize], errLocs[:])
	if corrected < 0 {
		logger.Debug("FX.25 FEC failed, too many errors",
			"channel", channel, "slice", slice)
		return
	}

	logger.Debug("FX.25 FEC complete",
		"channel", channel, "slice", slice, "corrected", corrected)

	var frame = fx25Unstuff(channel, slice, F.block[:F.dlen])
	if frame == nil {
		return
	}

	if len(frame) < MinFrameLen {
		// Most likely cause is defective sender software.
		logger.Error("FX.25 enclosed frame shorter than minimum",
			"channel", channel, "slice", slice, "len", len(frame))
		return
	}

	if !fcsCheck(frame) {
		// Most likely cause is defective sender software.
		logger.Error("FX.25 bad FCS for enclosed AX.25 frame",
			"channel", channel, "slice", slice)
		return
	}

	rx.processRecFrame(channel, subchan, slice, frame[:len(frame)-2],
		rx.audioLevel(channel, subchan), Retry(corrected), FECFX25)
}

/*-------------------------------------------------------------------
 *
 * Name:	fx25Unstuff
 *
 * Purpose:	Remove HDLC bit stuffing and the surrounding flag
 *		delimiters from the data part of a corrected codeblock.
 *
 * Inputs:	data	- The "data" part.  The first byte must be an
 *			  HDLC flag, possibly followed by more flags.
 *			  The terminating flag might not be byte
 *			  aligned.
 *
 * Returns:	Frame contents including the FCS, or nil on any error:
 *		missing leading flag, seven '1' bits in a row, not a
 *		whole number of bytes, or no terminating flag.
 *
 *--------------------------------------------------------------------*/

func fx25Unstuff(channel, slice int, data []byte) []byte {
	if len(data) == 0 || data[0] != 0x7e {
		logger.Error("FX.25 data section did not start with a flag",
			"channel", channel, "slice", slice)
		return nil
	}

	for len(data) > 0 && data[0] == 0x7e {
		data = data[1:] // Skip over leading flag byte(s).
	}

	var patDet byte
	var oacc byte
	var olen int
	var frame []byte

	for i := 0; i < len(data); i++ {
		for imask := byte(0x01); imask != 0; imask <<= 1 {
			var dbit = data[i]&imask != 0

			patDet >>= 1
			if dbit {
				patDet |= 0x80
			}

			if patDet == 0xfe {
				logger.Error("FX.25 invalid frame: seven '1' bits in a row",
					"channel", channel, "slice", slice)
				return nil
			}

			if dbit {
				oacc >>= 1
				oacc |= 0x80
			} else {
				if patDet == 0x7e { // Flag pattern: end of frame.
					if olen == 7 {
						// The flag's 7 bits so far mean the
						// frame before it was whole bytes.
						return frame
					}
					logger.Error("FX.25 invalid frame: not a whole number of bytes",
						"channel", channel, "slice", slice)
					return nil
				} else if (patDet >> 2) == 0x1f {
					// Five '1' bits then '0': stuffing, drop it.
					continue
				}
				oacc >>= 1
			}

			olen++
			if olen == 8 {
				olen = 0
				frame = append(frame, oacc)
			}
		}
	}

	logger.Error("FX.25 invalid frame: terminating flag not found",
		"channel", channel, "slice", slice)
	return nil
}
