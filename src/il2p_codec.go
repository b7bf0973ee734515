package borzoi

/*-------------------------------------------------------------
 *
 * Purpose:	Convert between raw AX.25 frames and the IL2P encoded
 *		form.
 *
 *--------------------------------------------------------------*/

import "fmt"

/*-------------------------------------------------------------
 *
 * Name:	IL2PEncodeFrame
 *
 * Purpose:	Convert an AX.25 frame, without FCS, to an IL2P
 *		transmission.
 *
 * Inputs:	frame	- Frame bytes.
 *
 *		maxFEC	- Use 16 parity symbols per payload block
 *			  rather than the automatic size.
 *
 *		trailingCRC - Append the Hamming protected CRC.
 *
 * Returns:	The transmitted byte stream starting with the 3 byte
 *		sync word.  Bytes go on the air MSB first;
 *		IL2PByteStreamBits produces the matching bit stream.
 *
 * Description:	A type 1 translated header is used when the frame
 *		fits its restrictions; everything else is wrapped
 *		whole in a type 0 transparent payload.
 *
 *--------------------------------------------------------------*/

func IL2PEncodeFrame(frame []byte, maxFEC bool, trailingCRC bool) ([]byte, error) {
	var out = []byte{
		byte(il2pSyncWord >> 16),
		byte(il2pSyncWord >> 8),
		byte(il2pSyncWord),
	}

	var hdr, payload []byte
	if h, info, ok := il2pType1Header(frame, maxFEC); ok {
		hdr = h
		payload = info
	} else if h, ok := il2pType0Header(frame, maxFEC); ok {
		hdr = h
		payload = frame
	} else {
		return nil, fmt.Errorf("il2p: frame size %d cannot be encoded", len(frame))
	}

	var shdr = il2pScrambleBlock(hdr)
	out = append(out, shdr...)
	out = append(out, il2pEncodeRS(shdr, il2pHeaderParity)...)

	if len(payload) > 0 {
		var enc = il2pEncodePayload(payload, maxFEC)
		if enc == nil {
			return nil, fmt.Errorf("il2p: payload of %d bytes cannot be encoded", len(payload))
		}
		out = append(out, enc...)
	}

	if trailingCRC {
		var crc = il2pCRCEncode(fcsCalc(frame))
		out = append(out, crc[:]...)
	}

	return out, nil
}

// IL2PByteStreamBits converts an IL2P byte stream to bits as sent over
// the air: MSB first, no NRZI.
func IL2PByteStreamBits(data []byte) []int {
	var bits = make([]int, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, int(b>>i)&1)
		}
	}
	return bits
}

/*-------------------------------------------------------------
 *
 * Name:	il2pDecodeHeaderPayload
 *
 * Purpose:	Convert a clarified header and the gathered encoded
 *		payload back to a raw AX.25 frame.
 *
 * In/Out:	symbolsCorrected - Corrections from the header FEC;
 *		payload corrections are added.
 *
 * Returns:	Frame bytes, or nil for failure.
 *
 *--------------------------------------------------------------*/

func il2pDecodeHeaderPayload(uhdr []byte, epayload []byte, symbolsCorrected *int) []byte {
	var payloadLen = il2pGetCount(uhdr)
	var maxFEC = il2pGetFECLevel(uhdr) != 0

	if il2pGetHdrType(uhdr) == 1 {
		// Type 1: any payload is the AX.25 information part.
		var frame = il2pDecodeHeaderType1(uhdr, *symbolsCorrected)
		if frame == nil {
			return nil
		}
		if payloadLen > 0 {
			var info = il2pDecodePayload(epayload, payloadLen, maxFEC, symbolsCorrected)
			if info == nil {
				// Good header but too many payload errors.
				return nil
			}
			frame = append(frame, info...)
		}
		return frame
	}

	// Type 0: the payload is the entire AX.25 frame.
	return il2pDecodePayload(epayload, payloadLen, maxFEC, symbolsCorrected)
}
