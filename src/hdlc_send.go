package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Convert frames to the bit stream as it would appear
 *		on the air.
 *
 * Description:	The counterpart of the framer: start flag, bit stuffed
 *		data including the FCS, end flag, all NRZI encoded.
 *		The receive side uses this for round trip testing and
 *		the file tools use it to build test corpora.  Nothing
 *		here touches audio.
 *
 *---------------------------------------------------------------*/

// hdlcBitStream accumulates data bits with HDLC stuffing, then NRZI
// encodes the lot.
type hdlcBitStream struct {
	dbits []int
	ones  int
}

// sendFlag appends the flag octet 01111110 with no stuffing.
func (s *hdlcBitStream) sendFlag() {
	const flag = 0x7e
	for i := 0; i < 8; i++ {
		s.dbits = append(s.dbits, (flag>>i)&1)
	}
	s.ones = 0
}

// sendByte appends one data octet, LSB first, inserting a zero after
// any five consecutive ones.
func (s *hdlcBitStream) sendByte(b byte) {
	for i := 0; i < 8; i++ {
		var bit = int(b>>i) & 1
		s.dbits = append(s.dbits, bit)
		if bit != 0 {
			s.ones++
			if s.ones == 5 {
				s.dbits = append(s.dbits, 0)
				s.ones = 0
			}
		} else {
			s.ones = 0
		}
	}
}

// nrzi converts the accumulated data bits to raw line bits:
// a 0 inverts the signal, a 1 leaves it alone.
func (s *hdlcBitStream) nrzi() []int {
	var out = make([]int, len(s.dbits))
	var level = 0
	for i, d := range s.dbits {
		if d == 0 {
			level = 1 - level
		}
		out[i] = level
	}
	return out
}

// EncodeFrameBits converts a frame, without FCS, into the raw NRZI bit
// stream as transmitted: opening flags, bit stuffed data and FCS, and
// closing flags.  Feeding the result to Receiver.RecBit reproduces the
// frame, which is how the round trip tests and test corpus tools work.
func EncodeFrameBits(frame []byte, preFlags, postFlags int) []int {
	var s hdlcBitStream

	for i := 0; i < preFlags; i++ {
		s.sendFlag()
	}
	for _, b := range frame {
		s.sendByte(b)
	}
	var fcs = fcsCalc(frame)
	s.sendByte(byte(fcs))
	s.sendByte(byte(fcs >> 8))
	for i := 0; i < postFlags; i++ {
		s.sendFlag()
	}

	return s.nrzi()
}

// EncodeByteStreamBits converts bytes, LSB first with no framing or
// stuffing, into raw NRZI bits.  This is how an FX.25 tag and
// codeblock go out on the air.
func EncodeByteStreamBits(data []byte) []int {
	var s hdlcBitStream
	for _, b := range data {
		for i := 0; i < 8; i++ {
			s.dbits = append(s.dbits, int(b>>i)&1)
		}
	}
	return s.nrzi()
}
