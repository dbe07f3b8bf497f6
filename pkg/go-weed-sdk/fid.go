package weed

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// CookieHexWidth is the fixed number of hex digits a cookie occupies at the
// end of a textual file id.
const CookieHexWidth = 2

// FileID identifies one stored blob: the volume holding it, the key within
// that volume and the cookie guarding against enumeration. Delta is non-zero
// for the extra ids of a batch assignment ("3,01637037d6_2").
//
// The textual form is "<volume>,<key hex><cookie hex>[_<delta>]". The key is
// rendered as the hex of its big-endian bytes with leading zero bytes
// stripped, so every accepted string round-trips exactly.
type FileID struct {
	VolumeID uint32
	Key      uint64
	Cookie   uint8
	Delta    uint32
}

// ParseFileID parses the textual form of a file id.
func ParseFileID(s string) (FileID, error) {
	malformed := func(reason string) (FileID, error) {
		return FileID{}, fmt.Errorf("%w %q: %s", ErrMalformedIdentifier, s, reason)
	}

	if s == "" {
		return malformed("empty")
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return malformed("missing comma")
	}

	volumeID, err := parseDecimal32(s[:comma])
	if err != nil {
		return malformed("volume id " + err.Error())
	}

	rest := s[comma+1:]
	var delta uint32
	if i := strings.IndexByte(rest, '_'); i >= 0 {
		delta, err = parseDecimal32(rest[i+1:])
		if err != nil {
			return malformed("delta " + err.Error())
		}
		if delta == 0 {
			return malformed("delta must be positive")
		}
		rest = rest[:i]
	}

	if len(rest) < CookieHexWidth {
		return malformed(fmt.Sprintf("shorter than the %d digit cookie", CookieHexWidth))
	}
	keyHex, cookieHex := rest[:len(rest)-CookieHexWidth], rest[len(rest)-CookieHexWidth:]

	if !isLowerHex(cookieHex) {
		return malformed("cookie is not lowercase hex")
	}
	cookie, err := strconv.ParseUint(cookieHex, 16, 8)
	if err != nil {
		return malformed("cookie " + err.Error())
	}

	key, err := parseKeyHex(keyHex)
	if err != nil {
		return malformed("key " + err.Error())
	}

	return FileID{
		VolumeID: volumeID,
		Key:      key,
		Cookie:   uint8(cookie),
		Delta:    delta,
	}, nil
}

// MustParseFileID is like ParseFileID but panics on error. It is intended
// for tests and constant initialisation only.
func MustParseFileID(s string) FileID {
	fid, err := ParseFileID(s)
	if err != nil {
		panic(err)
	}
	return fid
}

// String returns the textual form of the file id.
func (f FileID) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(f.VolumeID), 10))
	b.WriteByte(',')
	b.WriteString(formatKeyHex(f.Key))
	fmt.Fprintf(&b, "%0*x", CookieHexWidth, f.Cookie)
	if f.Delta > 0 {
		b.WriteByte('_')
		b.WriteString(strconv.FormatUint(uint64(f.Delta), 10))
	}
	return b.String()
}

// IsZero reports whether f is the zero file id.
func (f FileID) IsZero() bool {
	return f == FileID{}
}

// WithDelta returns a copy of f carrying the given batch delta.
func (f FileID) WithDelta(delta uint32) FileID {
	f.Delta = delta
	return f
}

// Batch expands f into the count ids granted by a batch assignment: f itself
// followed by f_1 .. f_(count-1). All of them live on f's volume.
func (f FileID) Batch(count int) []FileID {
	if count < 1 {
		count = 1
	}
	ids := make([]FileID, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, f.WithDelta(f.Delta+uint32(i)))
	}
	return ids
}

// MarshalText implements encoding.TextMarshaler.
func (f FileID) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FileID) UnmarshalText(text []byte) error {
	parsed, err := ParseFileID(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func parseDecimal32(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("is empty")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%q is not a non-negative integer", s)
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("%q has leading zeros", s)
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return uint32(v), nil
}

func parseKeyHex(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	if !isLowerHex(s) {
		return 0, fmt.Errorf("%q is not lowercase hex", s)
	}
	if len(s)%2 != 0 {
		return 0, fmt.Errorf("%q has an odd number of digits", s)
	}
	if len(s) > 16 {
		return 0, fmt.Errorf("%q overflows 64 bits", s)
	}
	if strings.HasPrefix(s, "00") {
		return 0, fmt.Errorf("%q has a leading zero byte", s)
	}
	return strconv.ParseUint(s, 16, 64)
}

func formatKeyHex(key uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], key)
	i := 0
	for i < len(buf) && buf[i] == 0 {
		i++
	}
	return hex.EncodeToString(buf[i:])
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
