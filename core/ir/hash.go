package ir

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// HashBytes computes the BLAKE3 hash of data and returns it as a hex string.
func HashBytes(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashString computes the BLAKE3 hash of a string and returns it as a hex string.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// Hash returns the BLAKE3 content hash of the book: its code followed by
// every marker and text in order. Field and record separators keep distinct
// line splits from colliding.
func (b *Book) Hash() string {
	h := blake3.New()
	_, _ = h.Write([]byte(b.Code))
	for _, l := range b.Lines {
		_, _ = h.Write([]byte{0x1e})
		_, _ = h.Write([]byte(l.Marker))
		_, _ = h.Write([]byte{0x1f})
		_, _ = h.Write([]byte(l.Text))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashRef computes a hash of a scripture reference for consistent comparison.
func HashRef(r *Ref) string {
	return HashString(r.String())
}
