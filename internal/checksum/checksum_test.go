package checksum

import "testing"

func TestCRC8(t *testing.T) {
	c := NewCRC8()
	c.Write([]byte{0xFF, 0xF8, 0x69, 0x18})
	if c.Sum() == 0 {
		t.Fatalf("expected non-zero CRC-8 over non-trivial input")
	}
	c.Reset()
	if c.Sum() != 0 {
		t.Fatalf("Reset did not zero the checksum")
	}
}

func TestCRC32Matches(t *testing.T) {
	c := NewCRC32()
	c.Write([]byte("123456789"))
	const want = 0x89A1897F // Ogg CRC-32 (poly 0x04C11DB7, init 0, not reflected) check value
	if got := c.Sum(); got != want {
		t.Fatalf("CRC32(\"123456789\") = 0x%08X, want 0x%08X", got, want)
	}
}

func TestMD5Monitor(t *testing.T) {
	m := NewMD5()
	m.Write([]byte("abc"))
	sum := m.Sum()
	want := [16]byte{0x90, 0x01, 0x50, 0x98, 0x3c, 0xd2, 0x4f, 0xb0, 0xd6, 0x96, 0x3f, 0x7d, 0x28, 0xe1, 0x7f, 0x72}
	if sum != want {
		t.Fatalf("MD5(\"abc\") = %x, want %x", sum, want)
	}
}
