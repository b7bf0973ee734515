package borzoi

/*--------------------------------------------------------------------------------
 *
 * Purpose:	IL2P payload blocking: split, scramble and protect the
 *		payload so each set of data and parity symbols fits in a
 *		255 byte RS block.
 *
 *--------------------------------------------------------------------------------*/

type il2pPayloadProperties struct {
	payloadByteCount      int // Total size, 0 thru 1023.
	payloadBlockCount     int
	smallBlockSize        int
	largeBlockSize        int
	largeBlockCount       int
	smallBlockCount       int
	paritySymbolsPerBlock int // 2, 4, 6, 8 or 16.
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2pPayloadCompute
 *
 * Purpose:	Compute number and sizes of data blocks based on the
 *		total payload size.
 *
 * Inputs:	payloadSize	0 to 1023.
 *		maxFEC		true for 16 parity symbols per block,
 *				false for automatic.
 *
 * Returns:	Block layout, and the total number of bytes in the
 *		encoded form: 0 for no payload, -1 for an invalid size.
 *
 *--------------------------------------------------------------------------------*/

func il2pPayloadCompute(payloadSize int, maxFEC bool) (il2pPayloadProperties, int) {
	var p il2pPayloadProperties

	if payloadSize < 0 || payloadSize > il2pMaxPayloadSize {
		return p, -1
	}
	if payloadSize == 0 {
		return p, 0
	}

	p.payloadByteCount = payloadSize
	if maxFEC {
		p.payloadBlockCount = (p.payloadByteCount + 238) / 239
		p.paritySymbolsPerBlock = 16
	} else {
		p.payloadBlockCount = (p.payloadByteCount + 246) / 247
	}
	p.smallBlockSize = p.payloadByteCount / p.payloadBlockCount
	p.largeBlockSize = p.smallBlockSize + 1
	p.largeBlockCount = p.payloadByteCount - p.payloadBlockCount*p.smallBlockSize
	p.smallBlockCount = p.payloadBlockCount - p.largeBlockCount

	if !maxFEC {
		// The documentation bases this on the small block size.
		// It only works out if it is, in effect, the large one;
		// the thresholds below match observed behaviour.
		switch {
		case p.smallBlockSize <= 61:
			p.paritySymbolsPerBlock = 2
		case p.smallBlockSize <= 123:
			p.paritySymbolsPerBlock = 4
		case p.smallBlockSize <= 185:
			p.paritySymbolsPerBlock = 6
		case p.smallBlockSize <= 247:
			p.paritySymbolsPerBlock = 8
		default:
			logger.Error("IL2P parity symbols per payload block error",
				"small_block_size", p.smallBlockSize)
			return p, -1
		}
	}

	return p, p.smallBlockCount*(p.smallBlockSize+p.paritySymbolsPerBlock) +
		p.largeBlockCount*(p.largeBlockSize+p.paritySymbolsPerBlock)
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2pEncodePayload
 *
 * Purpose:	Scramble and add parity to the payload, block by block.
 *		Large blocks come first.
 *
 * Returns:	Encoded bytes, or nil for an invalid size.  Empty
 *		payload encodes to zero bytes.
 *
 *--------------------------------------------------------------------------------*/

func il2pEncodePayload(payload []byte, maxFEC bool) []byte {
	var ipp, encodedLen = il2pPayloadCompute(len(payload), maxFEC)
	if encodedLen < 0 {
		return nil
	}
	if encodedLen == 0 {
		return []byte{}
	}

	var out = make([]byte, 0, encodedLen)
	var next = payload

	encodeBlock := func(size int) {
		var scram = il2pScrambleBlock(next[:size])
		next = next[size:]
		out = append(out, scram...)
		out = append(out, il2pEncodeRS(scram, ipp.paritySymbolsPerBlock)...)
	}

	for b := 0; b < ipp.largeBlockCount; b++ {
		encodeBlock(ipp.largeBlockSize)
	}
	for b := 0; b < ipp.smallBlockCount; b++ {
		encodeBlock(ipp.smallBlockSize)
	}

	return out
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2pDecodePayload
 *
 * Purpose:	Extract the original data from an encoded payload.
 *
 * Inputs:	received	Encoded payload bytes.
 *		payloadSize	Expected result size, from the header.
 *		maxFEC		Parity mode, from the header.
 *
 * In/Out:	symbolsCorrected accumulates RS corrections.
 *
 * Returns:	Recovered payload, or nil when a block could not be
 *		repaired or the size is invalid.
 *
 *--------------------------------------------------------------------------------*/

func il2pDecodePayload(received []byte, payloadSize int, maxFEC bool, symbolsCorrected *int) []byte {
	var ipp, encodedLen = il2pPayloadCompute(payloadSize, maxFEC)
	if encodedLen <= 0 {
		return nil
	}
	if len(received) < encodedLen {
		return nil
	}

	var out = make([]byte, 0, payloadSize)
	var next = received
	var failed = false

	decodeBlock := func(size int) {
		var corrected, e = il2pDecodeRS(next[:size+ipp.paritySymbolsPerBlock], ipp.paritySymbolsPerBlock)
		next = next[size+ipp.paritySymbolsPerBlock:]
		if e < 0 {
			failed = true
			return
		}
		*symbolsCorrected += e
		out = append(out, il2pDescrambleBlock(corrected)...)
	}

	for b := 0; b < ipp.largeBlockCount && !failed; b++ {
		decodeBlock(ipp.largeBlockSize)
	}
	for b := 0; b < ipp.smallBlockCount && !failed; b++ {
		decodeBlock(ipp.smallBlockSize)
	}

	if failed {
		return nil
	}
	if len(out) != payloadSize {
		logger.Error("internal error: IL2P decoded length mismatch",
			"decoded", len(out), "expected", payloadSize)
		return nil
	}
	return out
}
