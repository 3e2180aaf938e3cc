package crc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/jammaio/crc"
)

func TestChecksum(t *testing.T) {
	cases := []struct {
		name     string
		data     []byte
		expected uint8
	}{
		{name: "empty", data: nil, expected: 0x00},
		{name: "check string", data: []byte("123456789"), expected: 0xA1},
		{name: "single zero", data: []byte{0x00}, expected: 0x00},
		{name: "single one", data: []byte{0x01}, expected: 0x5E},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, crc.Checksum(tc.data))
		})
	}
}

func TestUpdateChains(t *testing.T) {
	data := []byte("JAMMA configuration record")
	for split := 0; split <= len(data); split++ {
		got := crc.Update(crc.Update(0, data[:split]), data[split:])
		assert.Equal(t, crc.Checksum(data), got, "split at %d", split)
	}
}

func TestSingleByteFlipDetected(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i * 7)
	}
	ref := crc.Checksum(data)
	for i := range data {
		mod := append([]byte(nil), data...)
		mod[i] ^= 0xFF
		assert.NotEqual(t, ref, crc.Checksum(mod), "flip at %d", i)
	}
}
