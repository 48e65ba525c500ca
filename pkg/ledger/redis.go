package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rampartlabs/rampart/pkg/threat"
)

// Redis is a ledger backed by Redis sorted sets, for deployments that
// need reputation to survive restarts or be shared across processes.
// Events are stored as JSON members scored by their millisecond
// timestamp: one global set plus one set per source, so window queries
// are a single ZRANGEBYSCORE.
type Redis struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedis wraps an existing client. prefix namespaces the keys;
// retention bounds how long events are kept (zero keeps everything).
func NewRedis(rdb *redis.Client, prefix string, retention time.Duration) *Redis {
	if prefix == "" {
		prefix = "rampart"
	}
	return &Redis{rdb: rdb, prefix: prefix, retention: retention}
}

func (r *Redis) globalKey() string          { return r.prefix + ":events" }
func (r *Redis) sourceKey(src string) string { return r.prefix + ":src:" + src }

// Append records the event in both the global and per-source sets.
func (r *Redis) Append(ctx context.Context, ev threat.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	score := float64(ev.Timestamp.UnixMilli())

	pipe := r.rdb.TxPipeline()
	pipe.ZAdd(ctx, r.globalKey(), redis.Z{Score: score, Member: raw})
	pipe.ZAdd(ctx, r.sourceKey(ev.Source), redis.Z{Score: score, Member: raw})
	if r.retention > 0 {
		cutoff := strconv.FormatInt(time.Now().Add(-r.retention).UnixMilli(), 10)
		pipe.ZRemRangeByScore(ctx, r.globalKey(), "-inf", "("+cutoff)
		pipe.ZRemRangeByScore(ctx, r.sourceKey(ev.Source), "-inf", "("+cutoff)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Query returns this source's events inside the trailing window,
// oldest-first.
func (r *Redis) Query(ctx context.Context, source string, since time.Duration) ([]threat.Event, error) {
	return r.rangeByWindow(ctx, r.sourceKey(source), since)
}

// All returns every event inside the trailing window, oldest-first.
func (r *Redis) All(ctx context.Context, since time.Duration) ([]threat.Event, error) {
	return r.rangeByWindow(ctx, r.globalKey(), since)
}

func (r *Redis) rangeByWindow(ctx context.Context, key string, since time.Duration) ([]threat.Event, error) {
	min := strconv.FormatInt(time.Now().Add(-since).UnixMilli(), 10)
	members, err := r.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: min, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	out := make([]threat.Event, 0, len(members))
	for _, m := range members {
		var ev threat.Event
		if err := json.Unmarshal([]byte(m), &ev); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}
