package borzoi

/*-------------------------------------------------------------
 *
 * Purpose:	IL2P trailing CRC-16 protected by (7,4) Hamming
 *		encoding.
 *
 * Description:	The CRC provides a final validity check after RS FEC
 *		decoding, catching the rare cases where RS silently
 *		produces incorrect data under extreme error conditions.
 *
 * Reference:	IL2P specification v0.6
 *
 *--------------------------------------------------------------*/

// Hamming (7,4) encode table from the IL2P spec: 4 bit data nibble to
// 7 bit codeword.
var il2pHammingEncode = [16]byte{
	0x00, 0x71, 0x62, 0x13, 0x54, 0x25, 0x36, 0x47,
	0x38, 0x49, 0x5a, 0x2b, 0x6c, 0x1d, 0x0e, 0x7f,
}

// Hamming (7,4) decode table: 7 bit received codeword to 4 bit data
// nibble, with single bit error correction.
var il2pHammingDecode = [128]byte{
	0x00, 0x00, 0x00, 0x03, 0x00, 0x05, 0x0e, 0x07,
	0x00, 0x09, 0x0e, 0x0b, 0x0e, 0x0d, 0x0e, 0x0e,
	0x00, 0x03, 0x03, 0x03, 0x04, 0x0d, 0x06, 0x03,
	0x08, 0x0d, 0x0a, 0x03, 0x0d, 0x0d, 0x0e, 0x0d,
	0x00, 0x05, 0x02, 0x0b, 0x05, 0x05, 0x06, 0x05,
	0x08, 0x0b, 0x0b, 0x0b, 0x0c, 0x05, 0x0e, 0x0b,
	0x08, 0x01, 0x06, 0x03, 0x06, 0x05, 0x06, 0x06,
	0x08, 0x08, 0x08, 0x0b, 0x08, 0x0d, 0x06, 0x0f,
	0x00, 0x09, 0x02, 0x07, 0x04, 0x07, 0x07, 0x07,
	0x09, 0x09, 0x0a, 0x09, 0x0c, 0x09, 0x0e, 0x07,
	0x04, 0x01, 0x0a, 0x03, 0x04, 0x04, 0x04, 0x07,
	0x0a, 0x09, 0x0a, 0x0a, 0x04, 0x0d, 0x0a, 0x0f,
	0x02, 0x01, 0x02, 0x02, 0x0c, 0x05, 0x02, 0x07,
	0x0c, 0x09, 0x02, 0x0b, 0x0c, 0x0c, 0x0c, 0x0f,
	0x01, 0x01, 0x02, 0x01, 0x04, 0x01, 0x06, 0x0f,
	0x08, 0x01, 0x0a, 0x0f, 0x0c, 0x0f, 0x0f, 0x0f,
}

// il2pCRCEncode produces the 4 transmitted bytes, one Hamming encoded
// nibble each, high nibble of the CRC first.
func il2pCRCEncode(crc uint16) [il2pCRCEncodedSize]byte {
	return [il2pCRCEncodedSize]byte{
		il2pHammingEncode[(crc>>12)&0x0f],
		il2pHammingEncode[(crc>>8)&0x0f],
		il2pHammingEncode[(crc>>4)&0x0f],
		il2pHammingEncode[crc&0x0f],
	}
}

func il2pCRCDecode(encoded []byte) uint16 {
	return uint16(il2pHammingDecode[encoded[0]&0x7f])<<12 |
		uint16(il2pHammingDecode[encoded[1]&0x7f])<<8 |
		uint16(il2pHammingDecode[encoded[2]&0x7f])<<4 |
		uint16(il2pHammingDecode[encoded[3]&0x7f])
}

// il2pCRCCheck validates the received trailing CRC against the decoded
// frame bytes.  The CRC polynomial is the same one the AX.25 FCS uses.
func il2pCRCCheck(frame []byte, encodedCRC []byte) bool {
	return fcsCalc(frame) == il2pCRCDecode(encodedCRC)
}
