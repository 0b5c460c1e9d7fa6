package utils

import (
	"math/rand"
	"testing"
)

// TestGetBitsAsUint64 checks that GetBitsAsUint64 extracts fields MSB first
// at byte-aligned and unaligned positions.
func TestGetBitsAsUint64(t *testing.T) {

	// 1101 0011  0000 0000  1010 1010  0100 0100
	bitStream := []byte{0xd3, 0x00, 0xaa, 0x44}

	var testData = []struct {
		description string
		pos         uint
		len         uint
		want        uint64
	}{
		{"first byte", 0, 8, 0xd3},
		{"one bit", 0, 1, 1},
		{"second bit", 2, 1, 0},
		{"six reserved bits", 8, 6, 0},
		{"ten bit length", 14, 10, 0xaa},
		{"straddling bytes", 4, 8, 0x30},
		{"whole buffer", 0, 32, 0xd300aa44},
		{"last bit", 31, 1, 0},
		{"last nibble", 28, 4, 4},
	}

	for _, td := range testData {
		got := GetBitsAsUint64(bitStream, td.pos, td.len)
		if got != td.want {
			t.Errorf("%s: want 0x%x got 0x%x", td.description, td.want, got)
		}
	}
}

// TestGetBitsAsInt64 checks the twos-complement interpretation.
func TestGetBitsAsInt64(t *testing.T) {

	var testData = []struct {
		description string
		bitStream   []byte
		pos         uint
		len         uint
		want        int64
	}{
		{"positive byte", []byte{0x7f}, 0, 8, 127},
		{"minus one", []byte{0xff}, 0, 8, -1},
		{"minimum byte", []byte{0x80}, 0, 8, -128},
		{"single set bit", []byte{0x80}, 0, 1, -1},
		{"single clear bit", []byte{0x00}, 0, 1, 0},
		{"unaligned negative", []byte{0x0f, 0xf0}, 4, 8, -1},
		{"unaligned positive", []byte{0x07, 0xf0}, 4, 8, 127},
		{"38 bits negative", []byte{0xff, 0xff, 0xff, 0xff, 0xfc}, 0, 38, -1},
		{"64 bits", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe}, 0, 64, -2},
	}

	for _, td := range testData {
		got := GetBitsAsInt64(td.bitStream, td.pos, td.len)
		if got != td.want {
			t.Errorf("%s: want %d got %d", td.description, td.want, got)
		}
	}
}

// TestGetBitsAsSignMagnitude checks that the top bit is treated as a sign
// flag rather than as part of a twos-complement value.
func TestGetBitsAsSignMagnitude(t *testing.T) {

	var testData = []struct {
		description string
		bitStream   []byte
		len         uint
		want        int64
	}{
		{"positive", []byte{0x05}, 8, 5},
		{"negative", []byte{0x85}, 8, -5},
		{"negative zero", []byte{0x80}, 8, 0},
		{"largest negative", []byte{0xff}, 8, -127},
		{"five bits negative", []byte{0x98}, 5, -3},
		{"sign only", []byte{0x80}, 1, 0},
	}

	for _, td := range testData {
		got := GetBitsAsSignMagnitude(td.bitStream, 0, td.len)
		if got != td.want {
			t.Errorf("%s: want %d got %d", td.description, td.want, got)
		}
	}
}

// TestSetBitsLeavesNeighboursAlone checks that writing a field doesn't
// disturb the bits on either side of it.
func TestSetBitsLeavesNeighboursAlone(t *testing.T) {
	buff := []byte{0xff, 0xff, 0xff}

	SetBitsFromUint64(buff, 6, 10, 0)

	want := []byte{0xfc, 0x00, 0xff}
	for i := range want {
		if buff[i] != want[i] {
			t.Errorf("byte %d: want 0x%02x got 0x%02x", i, want[i], buff[i])
		}
	}
}

// TestSetGetRoundTrip writes random values at random positions and checks
// that they read back unchanged in all three interpretations.
func TestSetGetRoundTrip(t *testing.T) {
	const seed = 20240131
	r := rand.New(rand.NewSource(seed))

	for i := 0; i < 2000; i++ {
		buff := make([]byte, 16)
		r.Read(buff)
		length := uint(r.Intn(MaxFieldLength) + 1)
		pos := uint(r.Intn(lenInBits(buff) - int(length) + 1))

		u := r.Uint64()
		if length < MaxFieldLength {
			u &= (uint64(1) << length) - 1
		}
		SetBitsFromUint64(buff, pos, length, u)
		if got := GetBitsAsUint64(buff, pos, length); got != u {
			t.Fatalf("seed %d: unsigned pos %d length %d: want 0x%x got 0x%x", seed, pos, length, u, got)
		}

		s := int64(u)
		if length < MaxFieldLength {
			s -= int64(1) << (length - 1)
		}
		SetBitsFromInt64(buff, pos, length, s)
		if got := GetBitsAsInt64(buff, pos, length); got != s {
			t.Fatalf("seed %d: signed pos %d length %d: want %d got %d", seed, pos, length, s, got)
		}

		if length > 1 && length < MaxFieldLength {
			m := int64(u >> 1)
			if r.Intn(2) == 1 {
				m = -m
			}
			SetBitsFromSignMagnitude(buff, pos, length, m)
			if got := GetBitsAsSignMagnitude(buff, pos, length); got != m {
				t.Fatalf("seed %d: sign-magnitude pos %d length %d: want %d got %d", seed, pos, length, m, got)
			}
		}
	}
}

// TestOverrunPanics checks that reading past the end of the buffer is
// treated as a contract violation.
func TestOverrunPanics(t *testing.T) {

	var testData = []struct {
		description string
		pos         uint
		len         uint
	}{
		{"past the end", 20, 8},
		{"zero length", 0, 0},
		{"too wide", 0, 65},
	}

	for _, td := range testData {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected a panic", td.description)
				}
			}()
			GetBitsAsUint64(make([]byte, 3), td.pos, td.len)
		}()
	}
}

func lenInBits(buff []byte) int {
	return len(buff) * 8
}
