package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"user-rates/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// CachedResponse is what a handler stores under the idempotency cache key: the
// original status plus the original payload, so a replay is indistinguishable
// from the first response.
type CachedResponse struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Idempotency guards POST endpoints against double submission. A repeated
// Idempotency-Key replays the first response verbatim; a key whose first
// request is still in flight is rejected until it completes or the lock
// expires.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempKey := c.GetHeader("Idempotency-Key")

		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		cacheKey := fmt.Sprintf("idemp:%s:%s", c.FullPath(), idempKey)
		lockKey := cacheKey + ":lock"

		val, err := rdb.Get(c.Request.Context(), cacheKey).Result()
		if err == nil {
			var cached CachedResponse
			if json.Unmarshal([]byte(val), &cached) == nil && cached.Status != 0 {
				response.Success(c, cached.Status, cached.Data)
				c.Abort()
				return
			}
		}

		// Short-lived lock so a crashed request cannot wedge the key.
		isNew, _ := rdb.SetNX(c.Request.Context(), lockKey, "locked", 30*time.Second).Result()
		if !isNew {
			response.Error(c, http.StatusConflict, "PROCESSING",
				"A request with this key is already being processed.", nil)
			c.Abort()
			return
		}

		c.Set("idempotency_cache_key", cacheKey)
		c.Set("idempotency_lock_key", lockKey)

		c.Next()
	}
}
