// Package store keeps a Redis-backed archive of accepted positions and a
// short-lived set of recently issued placements used to avoid handing the
// same board out twice in a row.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/park285/fairchess/internal/generate"
)

const keyPrefix = "fairchess:"

type Archive struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewArchive connects to Redis and verifies the connection. ttl bounds how
// long an issued placement suppresses duplicates.
func NewArchive(redisURL string, ttl time.Duration) (*Archive, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required for archive")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Archive{rdb: rdb, ttl: ttl}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}

// SeenRecently reports whether the placement was issued within the TTL.
func (a *Archive) SeenRecently(ctx context.Context, placement string) (bool, error) {
	n, err := a.rdb.Exists(ctx, recentKey(placement)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type archivedPosition struct {
	ID         string    `json:"id"`
	FEN        string    `json:"fen"`
	Evaluation int       `json:"evaluation"`
	Attempts   int       `json:"attempts"`
	Backend    string    `json:"backend"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// Record archives an accepted position and marks its placement as recently
// issued.
func (a *Archive) Record(ctx context.Context, rec generate.AcceptedRecord) error {
	entry := archivedPosition{
		ID:         uuid.NewString(),
		FEN:        rec.FEN,
		Evaluation: rec.Evaluation,
		Attempts:   rec.Attempts,
		Backend:    rec.Backend,
		AcceptedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	placement, _, _ := strings.Cut(rec.FEN, " ")
	pipe := a.rdb.TxPipeline()
	pipe.Set(ctx, recentKey(placement), entry.ID, a.ttl)
	pipe.LPush(ctx, keyPrefix+"accepted", raw)
	pipe.LTrim(ctx, keyPrefix+"accepted", 0, 999)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit archived positions, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]generate.AcceptedRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	raws, err := a.rdb.LRange(ctx, keyPrefix+"accepted", 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]generate.AcceptedRecord, 0, len(raws))
	for _, raw := range raws {
		var entry archivedPosition
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		out = append(out, generate.AcceptedRecord{
			FEN:        entry.FEN,
			Evaluation: entry.Evaluation,
			Attempts:   entry.Attempts,
			Backend:    entry.Backend,
		})
	}
	return out, nil
}

func recentKey(placement string) string {
	return keyPrefix + "recent:" + placement
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
