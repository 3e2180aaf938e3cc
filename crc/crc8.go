// Package crc implements the 8-bit checksum used to validate persisted records.
//
// The polynomial is CRC-8/MAXIM (Dallas 1-Wire): x^8 + x^5 + x^4 + 1, processed
// LSB first (reflected polynomial 0x8C), initial value 0, no final xor.
package crc

// Polynomial is the reflected CRC-8/MAXIM polynomial.
const Polynomial = 0x8C

var table = makeTable(Polynomial)

func makeTable(poly uint8) [256]uint8 {
	var t [256]uint8
	for i := 0; i < 256; i++ {
		c := uint8(i)
		for b := 0; b < 8; b++ {
			if c&0x01 != 0 {
				c = (c >> 1) ^ poly
			} else {
				c >>= 1
			}
		}
		t[i] = c
	}
	return t
}

// Checksum returns the CRC-8 of data.
func Checksum(data []byte) uint8 {
	return Update(0, data)
}

// Update continues a running checksum: Update(Update(0, a), b) == Checksum(a+b).
func Update(seed uint8, data []byte) uint8 {
	c := seed
	for _, b := range data {
		c = table[c^b]
	}
	return c
}
