package core

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Encoding is the decoding strategy chosen for one file.
type Encoding string

const (
	EncodingUTF8BOM  Encoding = "utf-8-sig"
	EncodingUTF8     Encoding = "utf-8"
	EncodingShiftJIS Encoding = "shift_jis"
)

// DetectEncoding probes the whole file once: a UTF-8 BOM wins, then valid
// UTF-8, and anything else is assumed to be Shift-JIS (CP932, which is what
// Japanese Excel writes). The fallback is not validated here.
func DetectEncoding(raw []byte) Encoding {
	if HasBOM(raw) {
		return EncodingUTF8BOM
	}
	if utf8.Valid(raw) {
		return EncodingUTF8
	}
	return EncodingShiftJIS
}

// Decode returns a UTF-8 reader over raw using the detected encoding.
//
// Shift-JIS input is decoded eagerly so a file that is neither UTF-8 nor
// Shift-JIS fails with ErrEncoding before any row is handed to the
// tokenizer. No third encoding is attempted.
func Decode(raw []byte) (io.Reader, Encoding, error) {
	enc := DetectEncoding(raw)

	switch enc {
	case EncodingUTF8BOM:
		return NewBOMSkippingReader(bytes.NewReader(raw)), enc, nil
	case EncodingUTF8:
		return bytes.NewReader(raw), enc, nil
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	if err != nil {
		return nil, enc, fmt.Errorf("%w: decode as %s: %v", ErrEncoding, enc, err)
	}
	// The x/text decoder substitutes U+FFFD for bytes outside CP932
	// instead of failing.
	if i := bytes.IndexRune(decoded, utf8.RuneError); i >= 0 {
		return nil, enc, fmt.Errorf("%w: decode as %s: invalid byte sequence near decoded offset %d", ErrEncoding, enc, i)
	}

	return bytes.NewReader(decoded), enc, nil
}
