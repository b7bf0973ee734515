package borzoi

/*--------------------------------------------------------------------------------
 *
 * Purpose:	The IL2P header: 13 bytes holding the addresses, frame
 *		type and payload size in a compact translated form.
 *
 * Description:	A type 1 header carries two callsigns as DEC SIXBIT,
 *		the SSIDs, a condensed control field and a 4 bit PID.
 *		It cannot express digipeater paths, modulo 128 sequence
 *		numbers or SABME; those frames use a type 0 header and
 *		carry the whole AX.25 frame in the payload instead.
 *
 * Reference:	http://tarpn.net/t/il2p/il2p-specification0-4.pdf
 *
 *--------------------------------------------------------------------------------*/

// Convert ASCII to/from DEC SIXBIT as defined here:
// https://en.wikipedia.org/wiki/Six-bit_character_code#DEC_six-bit_code

func asciiToSixbit(a byte) byte {
	if a >= ' ' && a <= '_' {
		return a - ' '
	}
	return 31 // '?' for any invalid.
}

func sixbitToASCII(s byte) byte {
	return s + ' '
}

/*
 * Header fields are spread vertically: each field occupies one bit
 * position (bitNum) across a run of header bytes, LSB at lsbIndex.
 * It is assumed the header was zeroed first.
 */

func il2pSetField(hdr []byte, bitNum, lsbIndex, width, value int) {
	for width > 0 && value != 0 {
		if value&1 != 0 {
			hdr[lsbIndex] |= 1 << bitNum
		}
		value >>= 1
		lsbIndex--
		width--
	}
}

func il2pGetField(hdr []byte, bitNum, lsbIndex, width int) int {
	var result = 0
	lsbIndex -= width - 1
	for width > 0 {
		result <<= 1
		if hdr[lsbIndex]&(1<<bitNum) != 0 {
			result |= 1
		}
		lsbIndex++
		width--
	}
	return result
}

func il2pSetUI(hdr []byte, v int)      { il2pSetField(hdr, 6, 0, 1, v) }
func il2pSetPID(hdr []byte, v int)     { il2pSetField(hdr, 6, 4, 4, v) }
func il2pSetControl(hdr []byte, v int) { il2pSetField(hdr, 6, 11, 7, v) }
func il2pSetFECLevel(hdr []byte, v int) { il2pSetField(hdr, 7, 0, 1, v) }
func il2pSetHdrType(hdr []byte, v int)  { il2pSetField(hdr, 7, 1, 1, v) }
func il2pSetCount(hdr []byte, v int)    { il2pSetField(hdr, 7, 11, 10, v) }

func il2pGetUI(hdr []byte) int       { return il2pGetField(hdr, 6, 0, 1) }
func il2pGetPID(hdr []byte) int      { return il2pGetField(hdr, 6, 4, 4) }
func il2pGetControl(hdr []byte) int  { return il2pGetField(hdr, 6, 11, 7) }
func il2pGetFECLevel(hdr []byte) int { return il2pGetField(hdr, 7, 0, 1) }
func il2pGetHdrType(hdr []byte) int  { return il2pGetField(hdr, 7, 1, 1) }
func il2pGetCount(hdr []byte) int    { return il2pGetField(hdr, 7, 11, 10) }

// AX.25 'I' and 'UI' frames have a protocol ID which determines how
// the information part should be interpreted.  The most common cases
// squeeze into 4 bits; -1 means translation is not possible and the
// encoder falls back to a type 0 header.

func il2pEncodePID(pid byte) int {
	switch {
	case pid&0x30 == 0x20 || pid&0x30 == 0x10:
		return 0x2 // AX.25 Layer 3
	case pid == 0x01:
		return 0x3 // ISO 8208 / CCITT X.25 PLP
	case pid == 0x06:
		return 0x4 // Compressed TCP/IP
	case pid == 0x07:
		return 0x5 // Uncompressed TCP/IP
	case pid == 0x08:
		return 0x6 // Segmentation fragment
	case pid == 0xcc:
		return 0xb // ARPA Internet Protocol
	case pid == 0xcd:
		return 0xc // ARPA Address Resolution
	case pid == 0xce:
		return 0xd // FlexNet
	case pid == 0xcf:
		return 0xe // TheNET
	case pid == 0xf0:
		return 0xf // No L3
	}
	return -1
}

func il2pDecodePID(pid int) byte {
	var axpid = [16]byte{
		0xf0, // Should not happen. 0 is for 'S' frames.
		0xf0, // Should not happen. 1 is for 'U' frames (but not UI).
		0x20, // AX.25 Layer 3
		0x01, // ISO 8208 / CCITT X.25 PLP
		0x06, // Compressed TCP/IP
		0x07, // Uncompressed TCP/IP
		0x08, // Segmentation fragment
		0xf0, // Future
		0xf0, // Future
		0xf0, // Future
		0xf0, // Future
		0xcc, // ARPA Internet Protocol
		0xcd, // ARPA Address Resolution
		0xce, // FlexNet
		0xcf, // TheNET
		0xf0, // No L3
	}
	return axpid[pid&0xf]
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2pType1Header
 *
 * Purpose:	Attempt to create a type 1 header from raw AX.25 frame
 *		bytes (without FCS).
 *
 * Inputs:	frame	- AX.25 frame bytes.
 *		maxFEC	- Use maximum FEC symbols rather than automatic.
 *
 * Returns:	Header and the information part, or ok=false when the
 *		frame needs type 0 transparent encapsulation: more than
 *		two addresses, untranslatable PID, or anything other
 *		than a modulo 8 UI frame (raw bytes cannot reveal the
 *		modulo of I and S frames reliably).
 *
 *--------------------------------------------------------------------------------*/

func il2pType1Header(frame []byte, maxFEC bool) (hdr []byte, info []byte, ok bool) {
	if len(frame) < 14+1 {
		return nil, nil, false
	}
	// Exactly two addresses: the address extension bit must first
	// appear at the end of the second address field.
	for i := 0; i < 13; i++ {
		if frame[i]&0x01 != 0 {
			return nil, nil, false
		}
	}
	if frame[13]&0x01 == 0 {
		return nil, nil, false
	}

	var control = frame[14]
	if control&0xef != 0x03 {
		// Not a UI frame.  I and S frames cannot be translated
		// from raw bytes because the modulo is ambiguous.
		return nil, nil, false
	}
	if len(frame) < 16 {
		return nil, nil, false
	}
	var pid = il2pEncodePID(frame[15])
	if pid < 0 {
		return nil, nil, false
	}

	hdr = make([]byte, il2pHeaderSize)

	// Destination and source callsigns go into the low six bits of
	// bytes 0-11.
	for i := 0; i < 6; i++ {
		var d = frame[i] >> 1
		var s = frame[7+i] >> 1
		if d != ' ' {
			hdr[i] = asciiToSixbit(d)
		}
		if s != ' ' {
			hdr[6+i] = asciiToSixbit(s)
		}
	}

	// Byte 12 has DEST SSID in the upper nybble, SRC SSID in the lower.
	hdr[12] = ((frame[6]>>1)&0x0f)<<4 | (frame[13]>>1)&0x0f

	var pf = int(control >> 4 & 1)
	var cmd = 0
	if frame[6]&0x80 != 0 {
		// Copy the command/response from the destination C bit.
		cmd = 1
	}

	il2pSetUI(hdr, 1)
	il2pSetPID(hdr, pid)
	il2pSetControl(hdr, pf<<6|5<<3|cmd<<2)

	il2pSetHdrType(hdr, 1)
	if maxFEC {
		il2pSetFECLevel(hdr, 1)
	}

	info = frame[16:]
	if len(info) > il2pMaxPayloadSize {
		return nil, nil, false
	}
	il2pSetCount(hdr, len(info))
	return hdr, info, true
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2pType0Header
 *
 * Purpose:	Create a type 0 header: transparent encapsulation with
 *		the whole AX.25 frame in the payload.
 *
 *--------------------------------------------------------------------------------*/

func il2pType0Header(frame []byte, maxFEC bool) ([]byte, bool) {
	if len(frame) < 14 || len(frame) > il2pMaxPayloadSize {
		return nil, false
	}
	var hdr = make([]byte, il2pHeaderSize)
	il2pSetHdrType(hdr, 0)
	if maxFEC {
		il2pSetFECLevel(hdr, 1)
	}
	il2pSetCount(hdr, len(frame))
	return hdr, true
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2pDecodeHeaderType1
 *
 * Purpose:	Reconstruct the AX.25 address, control and PID bytes
 *		from a type 1 header.  The information part is appended
 *		by the caller after the payload decodes.
 *
 * Inputs:	hdr	- Header after FEC and descrambling.
 *
 *		numSymChanged - Symbols changed by FEC in the header.
 *
 * Returns:	The frame prefix bytes or nil for failure.
 *
 * Description:	The 2 parity symbols can always correct a single bad
 *		symbol, but under a very high error rate the decoder
 *		sometimes "corrects" the wrong one and produces trash
 *		addresses like 'R&G4"A'.  A character sanity check
 *		catches that case.
 *
 *--------------------------------------------------------------------------------*/

func il2pDecodeHeaderType1(hdr []byte, numSymChanged int) []byte {
	if il2pGetHdrType(hdr) != 1 {
		logger.Error("internal error: il2pDecodeHeaderType1 called for a type 0 header")
		return nil
	}

	// Addresses: six SIXBIT characters each, space padded.
	var dest [6]byte
	var src [6]byte
	for i := 0; i < 6; i++ {
		dest[i] = sixbitToASCII(hdr[i] & 0x3f)
		src[i] = sixbitToASCII(hdr[6+i] & 0x3f)
	}
	for _, addr := range [2][6]byte{dest, src} {
		var seenSpace = false
		for _, ch := range addr {
			if ch == ' ' {
				seenSpace = true
				continue
			}
			if seenSpace || !((ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
				// Sporadically pops up when receiving random
				// noise; reject silently.
				_ = numSymChanged
				return nil
			}
		}
	}

	var destSSID = int(hdr[12]>>4) & 0x0f
	var srcSSID = int(hdr[12]) & 0x0f

	var pid = il2pGetPID(hdr)
	var ui = il2pGetUI(hdr)
	var control = il2pGetControl(hdr)
	var pf = control >> 6 & 1

	// Work out the AX.25 control byte(s), command/response and PID
	// from the condensed form.
	var cmd = control >> 2 & 1
	var axControl byte
	var axPID = -1 // -1 means no PID byte at all.

	switch {
	case pid == 0:
		// 'S' frame: P/F N(R) C S S.
		var nr = control >> 3 & 0x07
		var ss = control & 0x03
		axControl = byte(nr<<5 | pf<<4 | ss<<2 | 0x01)

	case pid == 1:
		// 'U' frame other than UI: P/F OPCODE(3) C x x.
		var ops = [8]byte{
			0x2f, // SABM
			0x43, // DISC
			0x0f, // DM
			0x63, // UA
			0x87, // FRMR
			0x03, // UI, should not happen with PID 1.
			0xaf, // XID
			0xe3, // TEST
		}
		axControl = ops[control>>3&0x07] | byte(pf<<4)

	case ui != 0:
		// 'UI' frame: P/F OPCODE(3) C x x.
		axControl = 0x03 | byte(pf<<4)
		axPID = int(il2pDecodePID(pid))

	default:
		// 'I' frame: P/F N(R) N(S).
		var nr = control >> 3 & 0x07
		var ns = control & 0x07
		axControl = byte(nr<<5 | pf<<4 | ns<<1)
		axPID = int(il2pDecodePID(pid))
	}

	// Build the raw frame prefix: dest, src, control, optional PID.
	var frame = make([]byte, 0, 16)
	for i := 0; i < 6; i++ {
		frame = append(frame, dest[i]<<1)
	}
	var destSSIDByte = byte(0x60 | destSSID<<1)
	var srcSSIDByte = byte(0x60 | srcSSID<<1 | 0x01)
	if cmd != 0 {
		destSSIDByte |= 0x80
	} else {
		srcSSIDByte |= 0x80
	}
	frame = append(frame, destSSIDByte)
	for i := 0; i < 6; i++ {
		frame = append(frame, src[i]<<1)
	}
	frame = append(frame, srcSSIDByte, axControl)
	if axPID >= 0 {
		frame = append(frame, byte(axPID))
	}
	return frame
}

/***********************************************************************************
 *
 * Name:        il2pClarifyHeader
 *
 * Purpose:     Convert a received header to usable form: RS FEC then
 *		descrambling.
 *
 * Returns:	The descrambled header and the number of symbols that
 *		were corrected, or -1 when no good header was found.
 *
 ***********************************************************************************/

func il2pClarifyHeader(recHdr []byte) ([]byte, int) {
	var corrected, e = il2pDecodeRS(recHdr, il2pHeaderParity)
	if e < 0 {
		return nil, e
	}
	return il2pDescrambleBlock(corrected), e
}
