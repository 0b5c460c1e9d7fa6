package crc

import (
	"math/bits"
)

// An RTCM version 2 message is a sequence of 30-bit words, each carrying 24
// data bits followed by 6 parity bits computed as in the GPS navigation
// message (ICD-GPS-200).  In the 32-bit word buffer the top two bits are the
// last two parity bits of the previous word, D29* and D30*.  If D30* is set
// the transmitter complemented the data bits.

// DataBitsMask covers the 24 data bits of a word in the word buffer.
const DataBitsMask = 0x3FFFFFC0

// invertedFlag is D30*, the last parity bit of the previous word.
const invertedFlag = 0x40000000

// hammingMasks select the bits that contribute to each parity bit D25-D30.
var hammingMasks = [6]uint32{
	0xBB1F3480, 0x5D8F9A40, 0xAEC7CD00, 0x5763E680, 0x6BB1F340, 0x8B7A89C0,
}

// parity computes the six parity bits of a word whose data bits are not
// complemented.
func parity(word uint32) uint32 {
	var p uint32
	for _, mask := range hammingMasks {
		p = (p << 1) | uint32(bits.OnesCount32(word&mask)&1)
	}
	return p
}

// DecodeWord checks the parity of a word from the word buffer.  If it's
// correct it returns the three data bytes and true.  See RTKLIB's
// decode_word().
func DecodeWord(word uint32) ([3]byte, bool) {
	var data [3]byte

	if word&invertedFlag != 0 {
		word ^= DataBitsMask
	}

	if parity(word) != word&0x3F {
		return data, false
	}

	for i := range data {
		data[i] = byte(word >> (22 - i*8))
	}
	return data, true
}

// EncodeWord is the inverse of DecodeWord.  It builds a word from three
// data bytes, using the bottom two bits of previous (the word sent before
// this one) as D29* and D30*.  The result holds those two bits at the top,
// then the data bits, complemented if D30* is set, then the parity.
func EncodeWord(previous uint32, data [3]byte) uint32 {
	word := (previous&0x3)<<30 |
		uint32(data[0])<<22 | uint32(data[1])<<14 | uint32(data[2])<<6

	p := parity(word)

	if word&invertedFlag != 0 {
		word ^= DataBitsMask
	}

	return word | p
}
