package borzoi

/*--------------------------------------------------------------------------------
 *
 * Purpose:	IL2P constants and Reed-Solomon glue.
 *
 * Reference:	http://tarpn.net/t/il2p/il2p-specification0-4.pdf
 *
 * Description:	IL2P ("improved layer 2 protocol") replaces HDLC framing
 *		entirely: a 24 bit sync word, a 13 byte scrambled header
 *		protected by 2 RS parity symbols, then payload blocks with
 *		2 to 16 parity symbols each.  No bit stuffing, no flags.
 *
 *		The RS codecs share the FX.25 field polynomial but use
 *		first consecutive root 0 instead of 1, and shortened
 *		blocks are padded with leading zeros.
 *
 *--------------------------------------------------------------------------------*/

const (
	il2pSyncWord     = 0xf15e48 // 24 bits, sent MSB first.
	il2pHeaderSize   = 13
	il2pHeaderParity = 2

	il2pMaxPayloadSize    = 1023
	il2pMaxPayloadBlocks  = 5 // ceil(1023 / 239) with maximum FEC.
	il2pMaxParitySymbols  = 16
	il2pMaxEncodedPayload = il2pMaxPayloadSize + il2pMaxPayloadBlocks*il2pMaxParitySymbols

	il2pCRCEncodedSize = 4
)

/*
 * One codec per parity count.  First root 0, unlike FX.25.
 */
var il2pCodecs = [5]struct {
	nroots uint
	rs     *rs
}{
	{nroots: 2},
	{nroots: 4},
	{nroots: 6},
	{nroots: 8},
	{nroots: 16},
}

func init() {
	for i := range il2pCodecs {
		var codec, err = newRS(8, 0x11d, 0, 1, il2pCodecs[i].nroots)
		if err != nil {
			panic("il2p: " + err.Error())
		}
		il2pCodecs[i].rs = codec
	}
}

func il2pFindRS(nparity int) *rs {
	for i := range il2pCodecs {
		if int(il2pCodecs[i].nroots) == nparity {
			return il2pCodecs[i].rs
		}
	}
	logger.Error("internal error: no IL2P codec for parity count", "nparity", nparity)
	return il2pCodecs[0].rs
}

/*-------------------------------------------------------------
 *
 * Name:	il2pEncodeRS
 *
 * Purpose:	Compute parity symbols for a block of data.
 *
 * Description:	Shortened blocks are encoded as if padded with zeros
 *		in front, up to the full 255 byte RS block.
 *
 *--------------------------------------------------------------*/

func il2pEncodeRS(data []byte, numParity int) []byte {
	var codec = il2pFindRS(numParity)

	var block = make([]byte, codec.nn)
	copy(block[codec.nn-numParity-len(data):codec.nn-numParity], data)

	var parity = make([]byte, numParity)
	codec.encode(block[:codec.nn-numParity], parity)
	return parity
}

/*-------------------------------------------------------------
 *
 * Name:	il2pDecodeRS
 *
 * Purpose:	Check and attempt to repair a received block.
 *
 * Inputs:	recBlock - data followed by numParity parity symbols.
 *
 * Returns:	The possibly corrected data bytes and the number of
 *		symbols corrected, or -1 for unrecoverable.
 *
 *--------------------------------------------------------------*/

func il2pDecodeRS(recBlock []byte, numParity int) ([]byte, int) {
	var codec = il2pFindRS(numParity)
	var dataSize = len(recBlock) - numParity

	// Zero padding in front if the block is shortened.
	var block = make([]byte, codec.nn)
	var pad = codec.nn - len(recBlock)
	copy(block[pad:], recBlock)

	var errLocs = make([]int, numParity)
	var corrected = codec.decode(block, errLocs)

	// It is possible to have too many errors present yet the
	// algorithm finds a "valid" code block by fixing one of the
	// padding bytes that must be zero.  That means trash.
	if corrected > 0 {
		for i := 0; i < corrected; i++ {
			if errLocs[i] < pad {
				corrected = -1
				break
			}
		}
	}

	var out = make([]byte, dataSize)
	copy(out, block[pad:pad+dataSize])
	return out, corrected
}
