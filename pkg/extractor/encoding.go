package extractor

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// decoderFor maps a configured encoding name to its decoder. UTF-8 is handled
// without a decoder. Unknown names are rejected by config validation, so a
// nil return here means "validate first".
func decoderFor(name string) *encoding.Decoder {
	switch strings.ToLower(name) {
	case "gbk":
		return simplifiedchinese.GBK.NewDecoder()
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder()
	default:
		return nil
	}
}

// decodeText tries each configured encoding in priority order and returns the
// first clean decode along with the encoding name. Decoded text containing
// NUL bytes is binary masquerading as text and is rejected.
func decodeText(raw []byte, encodings []string) (string, string, bool) {
	for _, name := range encodings {
		lower := strings.ToLower(name)
		if lower == "utf-8" || lower == "utf8" {
			if utf8.Valid(raw) && !bytes.ContainsRune(raw, 0) {
				return string(raw), "utf-8", true
			}
			continue
		}

		dec := decoderFor(name)
		if dec == nil {
			continue
		}
		decoded, err := dec.Bytes(raw)
		if err != nil || bytes.ContainsRune(decoded, 0) {
			continue
		}
		// x/text decoders substitute U+FFFD instead of failing; treat any
		// replacement rune as a decode miss, matching a strict decoder.
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		return string(decoded), lower, true
	}
	return "", "", false
}
