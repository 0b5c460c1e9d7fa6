// The crc package contains the integrity checks used by the framing layer:
// the CRC-16 shared by the Asv and SBF formats, the CRC-24Q that protects
// RTCM version 3 frames and the parity of RTCM version 2 words.
package crc

// CRC16 returns the CRC-16 of data using the CCITT polynomial 0x1021 with a
// zero initial value and no reflection (the XMODEM variant).  This is the
// checksum that Septentrio SBF blocks and Asv frames carry.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

var crc16Table = func() [256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if (crc & 0x8000) != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()
