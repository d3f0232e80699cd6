package helpers

import (
	"bytes"
	"testing"
)

func TestHexRoundTrip(t *testing.T) {
	b := []byte{0xde, 0xad, 0xbe, 0xef}
	s := BytesToHex(b)
	if s != "0xdeadbeef" {
		t.Errorf("BytesToHex = %q, want 0xdeadbeef", s)
	}

	got, err := HexToBytes(s)
	if err != nil {
		t.Fatalf("HexToBytes error: %v", err)
	}
	if !bytes.Equal(got, b) {
		t.Errorf("HexToBytes = %x, want %x", got, b)
	}

	// Prefix is optional on decode.
	got, err = HexToBytes("deadbeef")
	if err != nil {
		t.Fatalf("HexToBytes without prefix error: %v", err)
	}
	if !bytes.Equal(got, b) {
		t.Errorf("HexToBytes = %x, want %x", got, b)
	}
}

func TestIsHexDigest(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		byteLen int
		want    bool
	}{
		{name: "valid 32-byte digest", input: "0x" + repeat("ab", 32), byteLen: 32, want: true},
		{name: "uppercase accepted", input: "0x" + repeat("AB", 32), byteLen: 32, want: true},
		{name: "missing prefix", input: repeat("ab", 32), byteLen: 32, want: false},
		{name: "wrong length", input: "0x" + repeat("ab", 31), byteLen: 32, want: false},
		{name: "non-hex character", input: "0x" + repeat("zz", 32), byteLen: 32, want: false},
		{name: "empty", input: "", byteLen: 32, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHexDigest(tt.input, tt.byteLen); got != tt.want {
				t.Errorf("IsHexDigest(%q, %d) = %v, want %v", tt.input, tt.byteLen, got, tt.want)
			}
		})
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
