package id

import (
	"bytes"
	"encoding/binary"
	"net"
	"strings"
	"testing"
	"time"
)

func BenchmarkGen(b *testing.B) {
	for i := 0; i < b.N; i++ {
		id := New()
		_ = id
	}
}

func BenchmarkMarshalText(b *testing.B) {
	id := New()
	for i := 0; i < b.N; i++ {
		byts, _ := id.MarshalText()
		_ = byts
	}
}

func BenchmarkUnmarshalText(b *testing.B) {
	id := New()
	byts, _ := id.MarshalText()
	for i := 0; i < b.N; i++ {
		var id Id
		id.UnmarshalText(byts)
		_ = id
	}
}

func TestKnownEncodings(t *testing.T) {
	var zero Id
	if got, want := zero.String(), strings.Repeat("0", EncodedSize); got != want {
		t.Fatalf("zero id encoded to %q, want %q", got, want)
	}

	var max Id
	for i := range max {
		max[i] = 0xFF
	}
	if got, want := max.String(), "7"+strings.Repeat("Z", EncodedSize-1); got != want {
		t.Fatalf("max id encoded to %q, want %q", got, want)
	}
}

func TestValidInValid(t *testing.T) {
	id := New()
	byts, _ := id.MarshalText()
	if !ValidateText(byts) {
		t.Fatal("valid id should pass")
	}

	spaced := append([]byte(nil), byts...)
	spaced[5] = ' '
	if ValidateText(spaced) {
		t.Fatal("id with an invalid character should not pass")
	}

	if ValidateText(byts[:EncodedSize-1]) {
		t.Fatal("short id should not pass")
	}

	overflowed := append([]byte(nil), byts...)
	overflowed[0] = 'Z' // leading digit above 7 doesn't fit 128 bits
	if ValidateText(overflowed) {
		t.Fatal("overflowing id should not pass")
	}
}

func TestTextRoundTrip(t *testing.T) {
	in := New()
	byts, err := in.MarshalText()
	if err != nil {
		t.Fatal("marshal failed:", err)
	}
	if len(byts) != EncodedSize {
		t.Fatal("unexpected encoded size:", len(byts))
	}

	var out Id
	if err := out.UnmarshalText(byts); err != nil {
		t.Fatal("unmarshal failed:", err)
	}
	if in != out {
		t.Fatalf("round trip mismatch. got: %v, want: %v", out, in)
	}

	var fromLower Id
	if err := fromLower.UnmarshalText(bytes.ToLower(byts)); err != nil {
		t.Fatal("lowercase unmarshal failed:", err)
	}
	if in != fromLower {
		t.Fatalf("lowercase round trip mismatch. got: %v, want: %v", fromLower, in)
	}
}

func TestFieldPacking(t *testing.T) {
	SetMachineIdHost(net.IP{127, 0, 0, 1}, 5000)

	ts := time.Now()
	ms := uint64(ts.Unix())*1000 + uint64(ts.Nanosecond())/uint64(time.Millisecond)
	id := NewWithTime(ts)

	var buf [8]byte
	copy(buf[2:], id[:6])
	if got := binary.BigEndian.Uint64(buf[:]); got != ms {
		t.Fatal("id time doesn't match time given", ms, got)
	}

	copy(buf[2:], id[6:12])
	want := uint64(127)<<40 | uint64(1)<<16 | uint64(5000)
	if got := binary.BigEndian.Uint64(buf[:]); got != want {
		t.Fatal("machine id mismatch", got, want)
	}
}

func TestStringsSortByMintOrder(t *testing.T) {
	a := New().String()
	b := New().String()
	if !(a < b) {
		t.Fatalf("ids minted in order should sort in order: %q then %q", a, b)
	}
}
