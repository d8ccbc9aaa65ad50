package wire

import (
	"path/filepath"
	"strings"
)

// ShortName is the fixed 11-byte filename field carried on the wire:
// 8 bytes of base name followed by 3 bytes of extension, both
// space-padded on the right.
type ShortName [FilenameSize]byte

// replacementByte stands in for any source-filename byte below 0x20,
// which the receiver treats as a protocol violation if it ever appears
// on the wire (spec open question 9c).
const replacementByte = '?'

// EncodeShortName canonicalizes a filesystem path into its on-wire
// short-name form: the final path component is uppercased, split on
// the first '.', and the base/extension truncated (not rounded) to 8
// and 3 bytes respectively, space-padded to fill the field.
func EncodeShortName(path string) ShortName {
	name := filepath.Base(path)
	name = toASCIIUpper(name)

	base := name
	ext := ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		base = name[:i]
		rest := name[i+1:]
		if j := strings.IndexByte(rest, '.'); j >= 0 {
			ext = rest[:j]
		} else {
			ext = rest
		}
	}

	var out ShortName
	for i := range out {
		out[i] = ' '
	}
	copyField(out[0:8], base)
	copyField(out[8:11], ext)
	return out
}

// copyField copies up to len(dst) bytes of src into dst, replacing any
// byte below 0x20 with replacementByte, and leaves the rest of dst
// space-padded (it is assumed to already be space-filled).
func copyField(dst []byte, src string) {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		b := src[i]
		if b < 0x20 {
			b = replacementByte
		}
		dst[i] = b
	}
}

// toASCIIUpper uppercases ASCII letters byte-wise, leaving every other
// byte untouched. Non-ASCII behavior is intentionally byte-wise, not
// Unicode-aware (spec open question 9c).
func toASCIIUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// toASCIILower is the receiver-side mirror of toASCIIUpper.
func toASCIILower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// CanonicalPath renders a received ShortName into the lowercase,
// dot-joined display/on-disk form: positions 0..7 are the base,
// 8..10 the extension, both right-trimmed of spaces independently, and
// joined with '.' only when the extension is non-empty.
func (n ShortName) CanonicalPath() string {
	base := strings.TrimRight(string(n[0:8]), " ")
	ext := strings.TrimRight(string(n[8:11]), " ")
	base = toASCIILower(base)
	ext = toASCIILower(ext)
	if ext == "" {
		return base
	}
	return base + "." + ext
}
