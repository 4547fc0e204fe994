package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/resilience"
)

// Load parses raw with ParseSource and builds an index from it. Every
// failure, including a list with no usable words, is a *LoadError.
func Load(ctx context.Context, raw string) (*Index, error) {
	src, err := ParseSource(raw)
	if err != nil {
		return nil, &LoadError{Source: redact(raw), Err: err}
	}
	return LoadSource(ctx, src)
}

// LoadSource builds an index from an already parsed source. Redis and
// postgres fetches are retried with backoff.
func LoadSource(ctx context.Context, src Source) (*Index, error) {
	logger := slog.Default().With("component", "dictionary", "source", src.String())
	start := time.Now()

	var (
		idx *Index
		err error
	)
	if src.Kind == KindSnapshot {
		idx, _, err = ReadSnapshot(src.Location)
	} else {
		var words []string
		words, err = fetchWords(ctx, src)
		if err == nil {
			idx, err = Build(words)
		}
	}
	if err != nil {
		return nil, &LoadError{Source: src.String(), Err: err}
	}

	stats := idx.Stats()
	logger.Info("dictionary loaded",
		"words", stats.Words,
		"buckets", stats.Buckets,
		"alphabet", stats.Alphabet,
		"skipped", stats.Skipped,
		"duration", time.Since(start),
	)
	return idx, nil
}

func fetchWords(ctx context.Context, src Source) ([]string, error) {
	switch src.Kind {
	case KindFile:
		return ReadWordFile(src.Location)
	case KindSQLite:
		return fetchSQLite(ctx, src)
	case KindRedis, KindPostgres:
		var words []string
		err := resilience.Retry(ctx, "dictionary-"+src.Kind, resilience.RetryConfig{}, func() error {
			var err error
			if src.Kind == KindRedis {
				words, err = fetchRedis(ctx, src)
			} else {
				words, err = fetchPostgres(ctx, src)
			}
			return err
		})
		return words, err
	default:
		return nil, fmt.Errorf("unsupported source kind %q", src.Kind)
	}
}

func fetchRedis(ctx context.Context, src Source) ([]string, error) {
	client, err := redis.NewFromURL(ctx, src.Location)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	words, err := client.Words(ctx, src.Key)
	if errors.Is(err, redis.ErrNoKey) {
		return nil, resilience.Permanent(err)
	}
	return words, err
}

func fetchPostgres(ctx context.Context, src Source) ([]string, error) {
	client, err := postgres.Open(ctx, src.Location, config.PostgresConfig{MaxOpenConns: 1})
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return queryColumn(ctx, client.DB, src.Table, src.Column)
}

func fetchSQLite(ctx context.Context, src Source) ([]string, error) {
	// sql.Open would silently create a missing database file.
	if _, err := os.Stat(src.Location); err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db, err := sql.Open("sqlite", src.Location)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	defer db.Close()
	return queryColumn(ctx, db, src.Table, src.Column)
}

func queryColumn(ctx context.Context, db *sql.DB, table, column string) ([]string, error) {
	col := postgres.QuoteIdentifier(column)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		col, postgres.QuoteIdentifier(table), col, col)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scanning word: %w", err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating words: %w", err)
	}
	return words, nil
}

func redact(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.User != nil {
		return u.Redacted()
	}
	return raw
}
