package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-reservation/internal/config"
)

// captureWriter tees the response body into buf until it exceeds limit,
// after which the response is marked as too large to cache.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflow {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.overflow = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the parts selected by cfg.KeyStrategy. Query
// parameters are re-encoded in key order so ?a=1&b=2 and ?b=2&a=1 share
// an entry.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	strategy := strings.ToLower(cfg.KeyStrategy)
	h := sha256.New()
	if strings.HasPrefix(strategy, "method_") {
		h.Write([]byte(r.Method + " "))
	}
	h.Write([]byte(r.URL.Path))
	if strategy != "route" && strategy != "method_route" {
		h.Write([]byte("?" + r.URL.Query().Encode()))
	}
	return cfg.Prefix + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}

// cachedResponse is the Redis hash layout of one stored response.
type cachedResponse struct {
	Status int    `redis:"status"`
	Header string `redis:"header"`
	Body   string `redis:"body"`
}

// volatileHeaders are per-response and never replayed from the cache.
var volatileHeaders = []string{"X-Cache", echo.HeaderXRequestID, echo.HeaderContentLength, "X-Ratelimit-Remaining", "X-Ratelimit-Limit"}

func snapshot(status int, header http.Header, body []byte) (map[string]any, error) {
	hdr := header.Clone()
	for _, k := range volatileHeaders {
		hdr.Del(k)
	}
	raw, err := json.Marshal(hdr)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": status, "header": string(raw), "body": string(body)}, nil
}

// replay reports false for a missing or unreadable entry.
func (cr cachedResponse) replay(c echo.Context) bool {
	if cr.Status == 0 {
		return false
	}
	var hdr http.Header
	if err := json.Unmarshal([]byte(cr.Header), &hdr); err != nil {
		return false
	}
	out := c.Response().Header()
	for k, vals := range hdr {
		for _, v := range vals {
			out.Add(k, v)
		}
	}
	out.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cr.Status)
	_, _ = c.Response().Write([]byte(cr.Body))
	return true
}

// NewRedisCache serves repeated public reads from Redis. Only 200 responses
// are stored; the X-Cache header reports HIT or MISS. Responses that depend
// on the caller must not be wrapped with it.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			var cr cachedResponse
			if err := rdb.HGetAll(ctx, key).Scan(&cr); err == nil && cr.replay(c) {
				return nil
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflow {
				return nil
			}
			fields, err := snapshot(cw.status, c.Response().Header(), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			// Detached from the request so a client hang-up does not abort the write.
			bg := context.WithoutCancel(ctx)
			_, _ = rdb.TxPipelined(bg, func(p redis.Pipeliner) error {
				p.Del(bg, key)
				p.HSet(bg, key, fields)
				p.Expire(bg, key, ttl)
				return nil
			})
			return nil
		}
	}
}

// PurgeOnWrite drops every cached response under cfg.Prefix after a
// successful request whose method is not cached.
func PurgeOnWrite(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	log = loggerOr(log).With("component", "cache")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil || cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return err
			}
			if s := c.Response().Status; s < 200 || s >= 300 {
				return nil
			}
			n, perr := purgePrefix(context.WithoutCancel(c.Request().Context()), rdb, cfg.Prefix)
			if perr != nil {
				log.Warn("cache purge failed", "prefix", cfg.Prefix, "err", perr)
			} else if n > 0 {
				log.Debug("cache purged", "prefix", cfg.Prefix, "keys", n)
			}
			return nil
		}
	}
}

// purgePrefix walks the keyspace with SCAN and unlinks matches in batches.
func purgePrefix(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
	total := 0
	iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := rdb.Unlink(ctx, batch...).Err(); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return total, err
	}
	return total, flush()
}
