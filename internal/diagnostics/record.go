// Package diagnostics describes how an input looked on the wire and after
// decoding, and assembles the outward response that carries that report
// next to the decomposition results.
package diagnostics

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Record is built once per request by the normalizer and never mutated.
type Record struct {
	Encoding string `json:"encoding"`
	Raw      Sub    `json:"raw"`
	Decoded  Sub    `json:"decoded"`
	Error    string `json:"error,omitempty"`
}

// Sub describes one view of the input text. IsUTF8 reports the bytes
// themselves, independent of the declared encoding.
type Sub struct {
	Original        string `json:"original"`
	IsValidEncoding bool   `json:"is_valid_encoding"`
	IsUTF8          bool   `json:"is_utf8"`
	Length          int    `json:"length"`
	Characters      int    `json:"characters"`
	Bytes           string `json:"bytes"`
}

// NewSub describes data as received. Bytes that are not valid UTF-8 are
// replaced with U+FFFD in Original so the record always serialises.
func NewSub(data []byte, valid bool) Sub {
	view := string(data)
	isUTF8 := utf8.Valid(data)
	if !isUTF8 {
		view = strings.ToValidUTF8(view, "\uFFFD")
	}
	return Sub{
		Original:        view,
		IsValidEncoding: valid,
		IsUTF8:          isUTF8,
		Length:          len(data),
		Characters:      utf8.RuneCount(data),
		Bytes:           HexBytes(data),
	}
}

// NewTextSub describes decoded text by its UTF-8 re-encoding.
func NewTextSub(text string, valid bool) Sub {
	return NewSub([]byte(text), valid && utf8.ValidString(text))
}

// HexBytes renders data as space separated lower-case hex pairs.
func HexBytes(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return fmt.Sprintf("% x", data)
}

// Failed reports whether normalization rejected the input.
func (r Record) Failed() bool {
	return r.Error != ""
}
