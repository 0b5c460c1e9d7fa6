package crc

import (
	"github.com/goblimey/go-crc24q/crc24q"
)

// CRC24Q returns the 24-bit Qualcomm CRC of data, the checksum that ends
// every RTCM version 3 message frame.
func CRC24Q(data []byte) uint32 {
	return crc24q.Hash(data)
}

// CRC24QBytes returns the CRC-24Q of data as the three bytes that appear
// at the end of an RTCM3 frame, high byte first.
func CRC24QBytes(data []byte) [3]byte {
	hash := crc24q.Hash(data)
	return [3]byte{crc24q.HiByte(hash), crc24q.MiByte(hash), crc24q.LoByte(hash)}
}
