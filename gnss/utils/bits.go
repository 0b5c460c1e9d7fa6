// The utils package contains the bit field codec shared by every protocol
// parser and message body.  All four wire formats pack integer fields MSB
// first at arbitrary bit positions, so a field is identified by its bit
// position from the start of the buffer and its length in bits.
//
// The functions panic if the field doesn't fit in the buffer or is wider than
// 64 bits.  That's a programming error, not bad input: the parsers check the
// frame length before any message body touches the data.
package utils

import (
	"fmt"
)

// MaxFieldLength is the widest field that the codec can handle.
const MaxFieldLength = 64

// checkField panics if the field at pos, length bits long, is not within buff.
func checkField(buff []byte, pos uint, length uint) {
	if length == 0 || length > MaxFieldLength {
		panic(fmt.Sprintf("utils: field length %d out of range 1-%d", length, MaxFieldLength))
	}
	lenBuffInBits := uint(len(buff)) * 8
	if pos+length > lenBuffInBits {
		panic(fmt.Sprintf("utils: field at bit %d length %d overruns a %d-bit buffer",
			pos, length, lenBuffInBits))
	}
}

// GetBitsAsUint64 extracts len bits from a slice of bytes, starting
// at bit position pos and returns them as a uint.  See RTKLIB's getbitu.
func GetBitsAsUint64(buff []byte, pos uint, len uint) uint64 {
	checkField(buff, pos, len)

	var result uint64
	for i := pos; i < pos+len; i++ {
		// Shift the byte down to put the desired bit at the bottom and
		// glue it onto the result.
		bit := (uint64(buff[i/8]) >> (7 - i%8)) & 1
		result = (result << 1) | bit
	}
	return result
}

// GetBitsAsInt64 extracts len bits from a slice of bytes, starting at bit
// position pos, interprets the bits as a twos-complement integer and returns
// the result as a 64-bit signed int.  See RTKLIB's getbits() function.
func GetBitsAsInt64(buff []byte, pos uint, len uint) int64 {
	uval := GetBitsAsUint64(buff, pos, len)
	if len == MaxFieldLength {
		return int64(uval)
	}

	// If the top bit is set the value is negative.  Extend the sign
	// through the rest of the 64 bits.
	signBit := uint64(1) << (len - 1)
	if uval&signBit != 0 {
		return int64(uval | ^(signBit<<1 - 1))
	}
	return int64(uval)
}

// GetBitsAsSignMagnitude extracts len bits from a slice of bytes starting at
// bit position pos, where the top bit is a sign flag and the remaining bits
// are the magnitude.  GLONASS ephemeris fields are encoded like this.  See
// RTKLIB's getbitg().
func GetBitsAsSignMagnitude(buff []byte, pos uint, len uint) int64 {
	checkField(buff, pos, len)
	if len == 1 {
		// There is only a sign bit, so the value is always zero.
		return 0
	}

	magnitude := int64(GetBitsAsUint64(buff, pos+1, len-1))
	if GetBitsAsUint64(buff, pos, 1) == 1 {
		return -magnitude
	}
	return magnitude
}

// SetBitsFromUint64 writes the bottom len bits of value into the slice of
// bytes starting at bit position pos.  The other bits in the buffer are left
// alone.  See RTKLIB's setbitu().
func SetBitsFromUint64(buff []byte, pos uint, len uint, value uint64) {
	checkField(buff, pos, len)

	mask := uint64(1) << (len - 1)
	for i := pos; i < pos+len; i, mask = i+1, mask>>1 {
		bit := byte(1) << (7 - i%8)
		if value&mask != 0 {
			buff[i/8] |= bit
		} else {
			buff[i/8] &^= bit
		}
	}
}

// SetBitsFromInt64 writes value as a len-bit twos-complement integer into
// the slice of bytes starting at bit position pos.  Values that don't fit
// are truncated to the bottom len bits.
func SetBitsFromInt64(buff []byte, pos uint, len uint, value int64) {
	SetBitsFromUint64(buff, pos, len, uint64(value))
}

// SetBitsFromSignMagnitude writes value as a sign flag followed by a
// (len-1)-bit magnitude.  See RTKLIB's setbitg().
func SetBitsFromSignMagnitude(buff []byte, pos uint, len uint, value int64) {
	checkField(buff, pos, len)

	var sign uint64
	magnitude := value
	if value < 0 {
		sign = 1
		magnitude = -value
	}
	SetBitsFromUint64(buff, pos, 1, sign)
	if len > 1 {
		SetBitsFromUint64(buff, pos+1, len-1, uint64(magnitude))
	}
}
