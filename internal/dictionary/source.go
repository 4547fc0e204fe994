package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
)

// Source kinds.
const (
	KindFile     = "file"
	KindSnapshot = "snapshot"
	KindRedis    = "redis"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
)

const (
	defaultRedisKey = "words"
	defaultTable    = "words"
	defaultColumn   = "word"
	maxLineBytes    = 1 << 20
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadError is fatal at startup: the service must not serve requests
// without a dictionary.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading dictionary from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{apperrors.ErrDictionaryLoad, e.Err}
}

// Source is a parsed dictionary location.
type Source struct {
	Kind string
	// Location is a file path for file, snapshot and sqlite sources, and a
	// connection URL for redis and postgres.
	Location string
	Key      string
	Table    string
	Column   string
}

// ParseSource accepts a bare path or a file://, snapshot://, redis://,
// rediss://, postgres://, postgresql:// or sqlite:// URL.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, fmt.Errorf("empty dictionary source")
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Source{Kind: KindFile, Location: raw}, nil
	}
	switch strings.ToLower(scheme) {
	case "file":
		return Source{Kind: KindFile, Location: rest}, nil
	case "snapshot":
		return Source{Kind: KindSnapshot, Location: rest}, nil
	case "redis", "rediss":
		u, err := url.Parse(raw)
		if err != nil {
			return Source{}, fmt.Errorf("parsing redis source: %w", err)
		}
		q := u.Query()
		key := q.Get("key")
		if key == "" {
			key = defaultRedisKey
		}
		q.Del("key")
		u.RawQuery = q.Encode()
		return Source{Kind: KindRedis, Location: u.String(), Key: key}, nil
	case "postgres", "postgresql":
		u, err := url.Parse(raw)
		if err != nil {
			return Source{}, fmt.Errorf("parsing postgres source: %w", err)
		}
		q := u.Query()
		table, column, err := tableColumn(q)
		if err != nil {
			return Source{}, err
		}
		u.RawQuery = q.Encode()
		return Source{Kind: KindPostgres, Location: u.String(), Table: table, Column: column}, nil
	case "sqlite":
		path, query, _ := strings.Cut(rest, "?")
		q, err := url.ParseQuery(query)
		if err != nil {
			return Source{}, fmt.Errorf("parsing sqlite source: %w", err)
		}
		table, column, err := tableColumn(q)
		if err != nil {
			return Source{}, err
		}
		if path == "" {
			return Source{}, fmt.Errorf("sqlite source needs a database path")
		}
		return Source{Kind: KindSQLite, Location: path, Table: table, Column: column}, nil
	default:
		return Source{}, fmt.Errorf("unsupported dictionary source scheme %q", scheme)
	}
}

func tableColumn(q url.Values) (string, string, error) {
	table, column := q.Get("table"), q.Get("column")
	q.Del("table")
	q.Del("column")
	if table == "" {
		table = defaultTable
	}
	if column == "" {
		column = defaultColumn
	}
	if !identPattern.MatchString(table) {
		return "", "", fmt.Errorf("invalid table name %q", table)
	}
	if !identPattern.MatchString(column) {
		return "", "", fmt.Errorf("invalid column name %q", column)
	}
	return table, column, nil
}

// Remote reports whether loading goes over the network.
func (s Source) Remote() bool {
	return s.Kind == KindRedis || s.Kind == KindPostgres
}

// String renders the source with any password redacted.
func (s Source) String() string {
	switch s.Kind {
	case KindRedis, KindPostgres:
		if u, err := url.Parse(s.Location); err == nil {
			return u.Redacted()
		}
		return s.Kind + "://"
	default:
		return s.Kind + "://" + s.Location
	}
}

// ReadWordFile reads a plain-text word list, one word per line. Blank lines
// and lines starting with '#' are ignored. Paths ending in .gz are
// decompressed.
func ReadWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening word list: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip word list: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadWords(r)
}

// ReadWords parses a word list from r. A line that is not valid UTF-8 makes
// the whole list invalid.
func ReadWords(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var words []string
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if line == 1 {
			text = strings.TrimPrefix(text, "\uFEFF")
		}
		if !utf8.ValidString(text) {
			return nil, fmt.Errorf("line %d is not valid utf-8", line)
		}
		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		words = append(words, text)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading word list at line %d: %w", line+1, err)
	}
	return words, nil
}
