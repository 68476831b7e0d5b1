package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ab-1402/Bank-Buddy/internal/httputil"
	"github.com/ab-1402/Bank-Buddy/internal/logger"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	lockTimeout       = 10 * time.Second

	cacheKeyPrefix = "idempotency:"
	lockKeyPrefix  = "lock:"
)

// cachedResponse is the envelope stored in Redis: a replayed response must
// carry the original status code, not an implicit 200.
type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func encodeCached(status int, body string) ([]byte, error) {
	return json.Marshal(cachedResponse{Status: status, Body: body})
}

// replayCached writes a stored response back to the client. A payload that
// does not parse is treated as a cache miss.
func replayCached(w http.ResponseWriter, raw string) bool {
	var cached cachedResponse
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.Status == 0 {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency-Hit", "true")
	w.WriteHeader(cached.Status)
	w.Write([]byte(cached.Body))
	return true
}

// responseRecorder captures the status and body so a successful response
// can be replayed for a retried request.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the cached response for a repeated Idempotency-Key,
// so a caller retrying a transfer after a lost response cannot apply it
// twice. Requests without the header pass through untouched.
func Idempotency(rdb *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := cacheKeyPrefix + key
			lockKey := lockKeyPrefix + key

			cached, err := rdb.Get(ctx, cacheKey).Result()
			if err == nil && replayCached(w, cached) {
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "processing", lockTimeout).Result()
			if err != nil {
				logger.Log.Error("idempotency lock failed", zap.Error(err))
				httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !acquired {
				httputil.WriteError(w, http.StatusConflict,
					"a request with this idempotency key is already being processed")
				return
			}
			defer func() {
				if err := rdb.Del(ctx, lockKey).Err(); err != nil {
					logger.Log.Error("idempotency lock release failed", zap.Error(err))
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 200 && rec.statusCode < 300 {
				payload, err := encodeCached(rec.statusCode, rec.body.String())
				if err != nil {
					logger.Log.Error("idempotency cache encode failed", zap.Error(err))
					return
				}
				if err := rdb.Set(ctx, cacheKey, payload, idempotencyTTL).Err(); err != nil {
					logger.Log.Error("idempotency cache write failed", zap.Error(err))
				}
			}
		})
	}
}
