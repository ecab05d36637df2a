package binfile

import (
	"strings"

	"github.com/meigma/binfile/charset"
)

// Charsets decodes raw field bytes for StringWithCharsetAt.
// The charset subpackage provides the default implementation.
type Charsets interface {
	// Detect returns a best-guess encoding name for raw.
	Detect(raw []byte) string
	UTF8(raw []byte) string
	// UTF16 decodes raw; name is the requested variant ("utf-16", "utf-16le" or "utf-16be").
	UTF16(raw []byte, name string) string
	Cyrillic(raw []byte) string
	// NullTerminated decodes raw up to the first zero byte.
	NullTerminated(raw []byte) string
}

// legacyCodePages are sniffed encodings that a declared ISO-8859-1 field is
// re-read as Cyrillic for.
var legacyCodePages = map[string]bool{
	"tis-620":      true,
	"windows-1253": true,
	"windows-1251": true,
	"euc-tv":       true,
}

// StringWithCharsetAt reads n bytes at off and decodes them with the named
// charset. An empty name is resolved with cs.Detect. Names are matched
// case-insensitively; unknown names use the null-terminated decoder.
//
// A non-positive off or n yields "" without reading the source.
// If cs is nil the charset package defaults are used.
func StringWithCharsetAt(src ByteSource, off, n int64, name string, cs Charsets) (string, error) {
	if off <= 0 || n <= 0 {
		return "", nil
	}
	raw, err := readField(src, "string", off, n)
	if err != nil {
		return "", err
	}
	if cs == nil {
		cs = charset.Default()
	}
	if name == "" {
		name = cs.Detect(raw)
	}

	switch strings.ToLower(name) {
	case "utf-16", "utf-16le", "utf-16be":
		return cs.UTF16(raw, name), nil
	case "utf-8":
		return cs.UTF8(raw), nil
	case "windows-1251", "maccyrillic":
		return cs.Cyrillic(raw), nil
	case "iso-8859-1":
		if legacyCodePages[strings.ToLower(cs.Detect(raw))] {
			return cs.Cyrillic(raw), nil
		}
	}
	return cs.NullTerminated(raw), nil
}
