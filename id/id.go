// Package id mints compact request ids: 48 bits of milliseconds, 48 bits of
// machine id and a 32 bit counter, rendered as 26 characters of crockford
// base32. Ids sort by time within one machine.
package id

import (
	"encoding/binary"
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// Id is the 16 byte binary form: [ 48 bits time | 48 bits machine | 32 bits counter ].
type Id [16]byte

// EncodedSize is the length of a text encoded Id.
const EncodedSize = 26

// alphabet is crockford base32, no I, L, O or U.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	machineID uint64
	counter   uint32

	errShortBuffer = errors.New("buffer too small for an encoded id")
	errBadEncoding = errors.New("not a text encoded id")
)

// digit maps an encoded byte back to its 5 bit value, 0xFF marks bytes
// outside the alphabet. Lowercase decodes too.
var digit [256]byte

func init() {
	for i := range digit {
		digit[i] = 0xFF
	}
	for i := 0; i < len(alphabet); i++ {
		digit[alphabet[i]] = byte(i)
		digit[alphabet[i]|0x20] = byte(i) // lowercase, a no-op for the digits
	}
}

// SetMachineId seeds the machine part of every id minted afterwards. Call it
// once, before the first New, whenever more than one process mints ids. Only
// the low 48 bits are kept.
func SetMachineId(id uint64) {
	machineID = id & (1<<48 - 1)
}

// SetMachineIdHost derives the machine id from an IPv4 address and port,
// which is unique enough across one deployment. Same constraints as
// SetMachineId.
func SetMachineIdHost(addr net.IP, port uint16) {
	ip4 := addr.To4()
	if ip4 == nil {
		return
	}
	SetMachineId(uint64(binary.BigEndian.Uint32(ip4))<<16 | uint64(port))
}

// New mints an id for the current moment. Safe for concurrent use; within
// one machine id, 2^32 calls per millisecond stay unique.
func New() Id {
	return NewWithTime(time.Now())
}

// NewWithTime mints an id stamped with the given time's milliseconds.
func NewWithTime(t time.Time) Id {
	var id Id
	ms := uint64(t.Unix())*1000 + uint64(t.Nanosecond())/uint64(time.Millisecond)

	binary.BigEndian.PutUint16(id[0:2], uint16(ms>>32))
	binary.BigEndian.PutUint32(id[2:6], uint32(ms))
	binary.BigEndian.PutUint16(id[6:8], uint16(machineID>>32))
	binary.BigEndian.PutUint32(id[8:12], uint32(machineID))
	binary.BigEndian.PutUint32(id[12:16], atomic.AddUint32(&counter, 1))
	return id
}

// String returns the text encoded id, e.g. 01AN4Z07BY79KA1307SR9X4MV3.
func (id Id) String() string {
	var b [EncodedSize]byte
	_ = id.MarshalTextTo(b[:])
	return string(b[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id Id) MarshalText() ([]byte, error) {
	b := make([]byte, EncodedSize)
	return b, id.MarshalTextTo(b)
}

// MarshalTextTo encodes into dst, which must hold EncodedSize bytes.
// 128 bits don't divide into 5 bit digits, so the leading digit carries
// only the top 3 bits, same as ulid.
func (id Id) MarshalTextTo(dst []byte) error {
	if len(dst) != EncodedSize {
		return errShortBuffer
	}

	var acc uint64
	bits := 0
	pos := EncodedSize
	for i := len(id) - 1; i >= 0; i-- {
		acc |= uint64(id[i]) << bits
		bits += 8
		for bits >= 5 && pos > 1 {
			pos--
			dst[pos] = alphabet[acc&31]
			acc >>= 5
			bits -= 5
		}
	}
	dst[0] = alphabet[acc] // the 3 leftover bits
	return nil
}

// ValidateText reports whether v is a well formed text encoded id.
func ValidateText(v []byte) bool {
	if len(v) != EncodedSize || digit[v[0]] > 7 {
		return false
	}
	for _, c := range v {
		if digit[c] == 0xFF {
			return false
		}
	}
	return true
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Id) UnmarshalText(v []byte) error {
	if !ValidateText(v) {
		return errBadEncoding
	}

	var acc uint64
	bits := 0
	pos := len(id)
	for i := EncodedSize - 1; i >= 0; i-- {
		acc |= uint64(digit[v[i]]) << bits
		bits += 5
		for bits >= 8 {
			pos--
			id[pos] = byte(acc)
			acc >>= 8
			bits -= 8
		}
	}
	return nil
}
