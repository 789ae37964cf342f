package classify

import (
	"bytes"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// DefaultEncoding is used whenever detection is disabled or inconclusive.
const DefaultEncoding = "utf-8"

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
)

// chardet reports a few names the WHATWG index spells differently.
var charsetAliases = map[string]string{
	"gb-18030": "gb18030",
}

// Decode turns raw file bytes into a string. Byte-order marks always win.
// Without one, detect enables statistical charset sniffing; an inconclusive
// or unsupported result falls back to DefaultEncoding. Decode never fails:
// undecodable input is returned as-is.
func Decode(raw []byte, detect bool) (string, string) {
	if text, name, ok := decodeBOM(raw); ok {
		return text, name
	}
	if !detect || len(raw) == 0 {
		return string(raw), DefaultEncoding
	}
	name, enc := DetectEncoding(raw)
	if enc == nil {
		return string(raw), DefaultEncoding
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw), DefaultEncoding
	}
	return string(out), name
}

// DetectEncoding sniffs raw and returns the canonical charset name and its
// decoder. It returns ("", nil) when nothing usable was detected.
func DetectEncoding(raw []byte) (string, encoding.Encoding) {
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil || result.Charset == "" {
		return "", nil
	}
	label := strings.ToLower(result.Charset)
	if alias, ok := charsetAliases[label]; ok {
		label = alias
	}
	if label == DefaultEncoding {
		return DefaultEncoding, encoding.Nop
	}
	if enc, err := htmlindex.Get(label); err == nil {
		if name, err := htmlindex.Name(enc); err == nil {
			label = name
		}
		return label, enc
	}
	if enc, err := ianaindex.IANA.Encoding(result.Charset); err == nil && enc != nil {
		return label, enc
	}
	return "", nil
}

func decodeBOM(raw []byte) (string, string, bool) {
	switch {
	case bytes.HasPrefix(raw, bomUTF32LE):
		return decodeWith(raw, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM)), "utf-32le", true
	case bytes.HasPrefix(raw, bomUTF32BE):
		return decodeWith(raw, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM)), "utf-32be", true
	case bytes.HasPrefix(raw, bomUTF8):
		return string(raw[len(bomUTF8):]), DefaultEncoding, true
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeWith(raw, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)), "utf-16le", true
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeWith(raw, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)), "utf-16be", true
	}
	return "", "", false
}

func decodeWith(raw []byte, enc encoding.Encoding) string {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
