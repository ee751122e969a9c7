package rate

import (
	"encoding/json"
	"net/http"
	"time"

	"user-rates/internal/middleware"
	"user-rates/internal/shared/apperror"
	"user-rates/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Handler struct {
	service Service
	cache   *RosterCache
	rdb     *redis.Client
	sf      *singleflight.Group
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, sf: &singleflight.Group{}}
}

func NewHandlerWithCache(service Service, cache *RosterCache, rdb *redis.Client) *Handler {
	return &Handler{service: service, cache: cache, rdb: rdb, sf: &singleflight.Group{}}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// GetCurrent serves the roster projection, preferring the redis cache when it
// is warm. A cache failure is never fatal; the database is the fallback.
// Concurrent misses collapse into one rebuild via singleflight so a cold or
// just-invalidated cache does not fan out into parallel roster queries.
func (h *Handler) GetCurrent(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if rows, ok := h.cache.Get(ctx); ok {
			response.Success(c, http.StatusOK, rows)
			return
		}
	}

	v, err, _ := h.sf.Do(rosterCacheKey, func() (interface{}, error) {
		rows, err := h.service.ListCurrent(ctx)
		if err != nil {
			return nil, err
		}

		if h.cache != nil {
			h.cache.Set(ctx, rows)
		}

		return rows, nil
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, v.([]CurrentRateResponse))
}

func (h *Handler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")

	resp, err := h.service.ListByUser(ctx, userID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) GetProposal(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")

	resp, err := h.service.ProposeNew(ctx, userID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) Create(c *gin.Context) {
	lockKey, _ := c.Get("idempotency_lock_key")
	cacheKey, _ := c.Get("idempotency_cache_key")

	if h.rdb != nil {
		if lk, ok := lockKey.(string); ok && lk != "" {
			defer h.rdb.Del(c.Request.Context(), lk)
		}
	}

	var req CreateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if h.rdb != nil {
		if ck, ok := cacheKey.(string); ok && ck != "" {
			if body, marshalErr := json.Marshal(resp); marshalErr == nil {
				cached, _ := json.Marshal(middleware.CachedResponse{
					Status: http.StatusCreated,
					Data:   body,
				})
				_ = h.rdb.Set(c.Request.Context(), ck, cached, 24*time.Hour).Err()
			}
		}
	}

	response.Success(c, http.StatusCreated, resp)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}
