package httpgin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
)

const idemLockTTL = 60 * time.Second

// IdempotencyStore remembers the first response of a keyed request.
type IdempotencyStore interface {
	GetResult(ctx context.Context, key string) (redisrepo.IdemResult, bool, error)
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, res redisrepo.IdemResult) error
	Release(ctx context.Context, key string) error
}

// fingerprint hashes a bound request so a reused key can be told apart from
// a repeat of the same request.
func fingerprint(req any) string {
	b, err := json.Marshal(req)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

// idempotent runs handle at most once per Idempotency-Key and replays the
// stored response for repeats of the same request. A key reused for a
// different request gets 422. Without a key or a store it just runs handle.
// Failed requests are not stored, so the client may retry them with the same key.
func idempotent(
	c *gin.Context,
	store IdempotencyStore,
	storageKey func(idemKey string) string,
	req any,
	handle func() (int, any, error),
) {
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if store == nil || idemKey == "" {
		status, body, err := handle()
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(status, body)
		return
	}

	ctx := c.Request.Context()
	key := storageKey(idemKey)
	fp := fingerprint(req)

	if replay(c, store, key, idemKey, fp) {
		return
	}

	locked, err := store.AcquireLock(ctx, key, idemLockTTL)
	if err != nil {
		// the store is unavailable; serve the request without deduplication
		_ = c.Error(err)
		status, body, err := handle()
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(status, body)
		return
	}

	if !locked {
		if replay(c, store, key, idemKey, fp) {
			return
		}
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "IDEMPOTENCY_IN_PROGRESS",
			Message: "a request with this idempotency key is in progress",
		})
		return
	}

	status, body, err := handle()
	if err != nil {
		_ = store.Release(context.WithoutCancel(ctx), key)
		respondErr(c, err)
		return
	}

	b, err := json.Marshal(body)
	if err != nil {
		_ = store.Release(context.WithoutCancel(ctx), key)
		respondErr(c, err)
		return
	}

	res := redisrepo.IdemResult{Status: status, Fingerprint: fp, Body: string(b)}
	if err := store.SaveResult(context.WithoutCancel(ctx), key, res); err != nil {
		_ = c.Error(err)
	}

	c.Header("Idempotency-Key", idemKey)
	c.Data(status, "application/json; charset=utf-8", b)
}

func replay(c *gin.Context, store IdempotencyStore, key, idemKey, fp string) bool {
	res, ok, _ := store.GetResult(c.Request.Context(), key)
	if !ok {
		return false
	}

	if res.Fingerprint != fp {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "IDEMPOTENCY_KEY_REUSED",
			Message: "the idempotency key was already used for a different request",
		})
		return true
	}

	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(res.Status, "application/json; charset=utf-8", []byte(res.Body))

	return true
}
