// Package normalizer validates incoming bytes under their declared encoding
// and reduces them to the canonical letter multiset the engine searches over.
// Every call produces a fully populated diagnostics.Record, including for
// input that fails validation.
package normalizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/diagnostics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/letters"
	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
)

const utf8Name = "utf-8"

// positional maps word-final glyph forms to the base letter.
var positional = map[rune]rune{
	'ך': 'כ',
	'ם': 'מ',
	'ן': 'נ',
	'ף': 'פ',
	'ץ': 'צ',
	'ς': 'σ',
}

// EncodingError reports bytes that are not well-formed under the declared
// encoding. It is fatal to a single request only.
type EncodingError struct {
	Encoding string
	Offset   int
	Reason   string
}

func (e *EncodingError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("invalid %s input at byte %d: %s", e.Encoding, e.Offset, e.Reason)
	}
	return fmt.Sprintf("invalid %s input: %s", e.Encoding, e.Reason)
}

func (e *EncodingError) Unwrap() error {
	return apperrors.ErrEncoding
}

// Result is the outcome of normalizing one input.
type Result struct {
	Letters   letters.Multiset
	Canonical string
	Text      string
	Record    diagnostics.Record
	Err       error
}

// Normalizer decodes input under a declared encoding, falling back to a
// configured default when the caller declares none.
type Normalizer struct {
	defaultEncoding string
}

// New returns a Normalizer whose default encoding label must be known to
// the WHATWG encoding index.
func New(defaultEncoding string) (*Normalizer, error) {
	if defaultEncoding == "" {
		defaultEncoding = utf8Name
	}
	if _, _, err := lookup(defaultEncoding); err != nil {
		return nil, err
	}
	return &Normalizer{defaultEncoding: defaultEncoding}, nil
}

// Normalize validates raw under label (or the default when label is empty)
// and canonicalizes it. Zero-length input yields an empty multiset and no
// error.
func (n *Normalizer) Normalize(raw []byte, label string) Result {
	if strings.TrimSpace(label) == "" {
		label = n.defaultEncoding
	}
	enc, name, err := lookup(label)
	if err != nil {
		return failed(raw, label, "", err)
	}

	text, err := decode(raw, enc, name)
	if err != nil {
		return failed(raw, name, text, err)
	}

	canonical := Canonicalize(text)
	return Result{
		Letters:   letters.FromString(canonical),
		Canonical: canonical,
		Text:      text,
		Record: diagnostics.Record{
			Encoding: name,
			Raw:      diagnostics.NewSub(raw, true),
			Decoded:  diagnostics.NewTextSub(canonical, true),
		},
	}
}

// Canonicalize strips everything except letters and folds case, diacritics
// and positional variants, so that the same letter compares equal wherever
// it appears in a word. Dictionary words go through the same function.
func Canonicalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if !unicode.IsLetter(r) {
			continue
		}
		r = unicode.ToLower(r)
		if base, ok := positional[r]; ok {
			r = base
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lookup(label string) (encoding.Encoding, string, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, "", &EncodingError{Encoding: label, Offset: -1, Reason: "unknown encoding"}
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = strings.ToLower(label)
	}
	return enc, name, nil
}

// decode returns the decoded text. On error the returned text is a lossy,
// best-effort rendering for diagnostics.
func decode(raw []byte, enc encoding.Encoding, name string) (string, error) {
	if name == utf8Name {
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		return strings.ToValidUTF8(string(raw), "�"), &EncodingError{
			Encoding: name,
			Offset:   firstInvalidUTF8(raw),
			Reason:   "malformed utf-8 sequence",
		}
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(decoded), "�"), &EncodingError{
			Encoding: name,
			Offset:   -1,
			Reason:   err.Error(),
		}
	}
	text := string(decoded)
	if strings.ContainsRune(text, utf8.RuneError) {
		return text, &EncodingError{
			Encoding: name,
			Offset:   -1,
			Reason:   "byte sequence has no mapping in this encoding",
		}
	}
	return text, nil
}

func failed(raw []byte, name, bestEffort string, err error) Result {
	return Result{
		Text: bestEffort,
		Record: diagnostics.Record{
			Encoding: name,
			Raw:      diagnostics.NewSub(raw, false),
			Decoded:  diagnostics.NewTextSub(bestEffort, false),
			Error:    err.Error(),
		},
		Err: err,
	}
}

func firstInvalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
