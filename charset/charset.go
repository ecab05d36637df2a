// Package charset provides the default string decoders used by
// binfile.StringWithCharsetAt.
//
// Decoding is backed by golang.org/x/text and detection by
// github.com/saintfish/chardet. Every decoder stops at the first NUL
// character, matching the zero-padded string fields found in binary formats.
package charset

import (
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Decoders implements the binfile.Charsets contract.
// The zero value is not usable; construct with New or use Default.
type Decoders struct {
	detector      *chardet.Detector
	minConfidence int
}

// Option configures Decoders.
type Option func(*Decoders)

// WithMinConfidence makes Detect return "" when the detector's confidence
// (0-100) is below n.
func WithMinConfidence(n int) Option {
	return func(d *Decoders) {
		d.minConfidence = n
	}
}

// New creates a decoder set.
func New(opts ...Option) *Decoders {
	d := &Decoders{detector: chardet.NewTextDetector()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoders = New()

// Default returns the shared decoder set with default options.
func Default() *Decoders {
	return defaultDecoders
}

// Detect returns the detected encoding name for raw, or "" when detection fails.
func (d *Decoders) Detect(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	res, err := d.detector.DetectBest(raw)
	if err != nil || res == nil {
		return ""
	}
	if res.Confidence < d.minConfidence {
		return ""
	}
	return res.Charset
}

// UTF8 decodes raw as UTF-8, dropping a leading byte order mark and
// replacing invalid sequences.
func (d *Decoders) UTF8(raw []byte) string {
	return decode(unicode.UTF8BOM, raw)
}

// UTF16 decodes raw as UTF-16. A byte order mark overrides the variant
// named; "utf-16" without a mark is read big-endian.
func (d *Decoders) UTF16(raw []byte, name string) string {
	endian := unicode.BigEndian
	if strings.EqualFold(name, "utf-16le") {
		endian = unicode.LittleEndian
	}
	return decode(unicode.UTF16(endian, unicode.UseBOM), raw)
}

// Cyrillic decodes raw as windows-1251.
func (d *Decoders) Cyrillic(raw []byte) string {
	return decode(charmap.Windows1251, raw)
}

// NullTerminated decodes raw as Latin-1 up to the first zero byte.
func (d *Decoders) NullTerminated(raw []byte) string {
	return decode(charmap.ISO8859_1, raw)
}

func decode(enc encoding.Encoding, raw []byte) string {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	s := string(out)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}
