package database

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBlocklistURL is a community-maintained list of words unsuitable for children
const DefaultBlocklistURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"

// SeedBlockedWords downloads the blocklist once. It does nothing when the
// table already has words.
func (db *DB) SeedBlockedWords(ctx context.Context, url string, client *http.Client, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if url == "" {
		url = DefaultBlocklistURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM blocked_words").Scan(&count); err != nil {
		return fmt.Errorf("failed to check blocked words count: %w", err)
	}
	if count > 0 {
		logger.Info("blocked words already populated", zap.Int("count", count))
		return nil
	}

	logger.Info("downloading blocked words list", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build blocklist request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download blocked words list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code from blocklist URL: %d", resp.StatusCode)
	}

	added, err := db.AddBlockedWords(ctx, resp.Body)
	if err != nil {
		return err
	}
	logger.Info("blocked words populated", zap.Int("count", added))
	return nil
}

// AddBlockedWords stores one word per line from r, skipping blanks and duplicates
func (db *DB) AddBlockedWords(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	added := 0
	query := db.Dialect.InsertIgnoreQuery("blocked_words", "word")

	err := db.WithTx(ctx, func(tx *Tx) error {
		for scanner.Scan() {
			word := strings.TrimSpace(strings.ToLower(scanner.Text()))
			if word == "" {
				continue
			}
			res, err := tx.ExecContext(ctx, query, word)
			if err != nil {
				return fmt.Errorf("failed to insert blocked word: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				added++
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("error reading blocked words: %w", err)
		}
		return nil
	})
	return added, err
}

// LoadBlockedWords returns every stored word
func (db *DB) LoadBlockedWords(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT word FROM blocked_words ORDER BY word")
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}
