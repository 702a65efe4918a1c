package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/gin-gonic/gin"
)

const (
	// IdempotencyKeyHeader is the header for idempotency key.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the idempotency store.
	IdempotentReplayHeader = "Idempotent-Replayed"

	defaultIdempotencyTTL = 24 * time.Hour
	idempotencyLockTTL    = 30 * time.Second
)

// IdempotencyConfig holds idempotency middleware configuration.
type IdempotencyConfig struct {
	// TTL is how long a response can be replayed.
	TTL time.Duration
	// Methods are the HTTP methods to apply idempotency check.
	// Default: POST, PUT, PATCH
	Methods []string
}

// DefaultIdempotencyConfig returns the default idempotency configuration.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     defaultIdempotencyTTL,
		Methods: []string{http.MethodPost, http.MethodPut, http.MethodPatch},
	}
}

// idempotencyRecord is the stored first response for a key.
type idempotencyRecord struct {
	BodyHash   string            `json:"body_hash"`
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
}

// idempotencyResponseWriter wraps gin.ResponseWriter to capture the response.
type idempotencyResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the first response for a repeated Idempotency-Key. Keys are scoped
// to the caller and route. Reusing a key with a different body is rejected. Server
// errors are not stored, so the client may retry them with the same key.
func Idempotency(store outbound.IdempotencyStorePort, cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL == 0 {
		cfg.TTL = defaultIdempotencyTTL
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = DefaultIdempotencyConfig().Methods
	}

	methodSet := make(map[string]bool, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methodSet[m] = true
	}

	return func(c *gin.Context) {
		if store == nil || !methodSet[c.Request.Method] {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyCacheKey(c, idempotencyKey)
		bodyHash := hashRequestBody(c)

		if data, err := store.Get(ctx, cacheKey); err == nil && data != nil {
			var record idempotencyRecord
			if err := json.Unmarshal(data, &record); err == nil {
				if record.BodyHash != bodyHash {
					abort(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED",
						"Idempotency-Key was already used with a different request body")
					return
				}
				for k, v := range record.Headers {
					c.Header(k, v)
				}
				c.Header(IdempotentReplayHeader, "true")
				c.Data(record.StatusCode, record.Headers["Content-Type"], record.Body)
				c.Abort()
				return
			}
		}

		locked, err := store.Lock(ctx, cacheKey, idempotencyLockTTL)
		if err != nil {
			// Store unavailable: serve the request without replay protection.
			c.Next()
			return
		}
		if !locked {
			abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS",
				"A request with this idempotency key is already being processed")
			return
		}
		defer func() { _ = store.Unlock(ctx, cacheKey) }()

		respWriter := &idempotencyResponseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = respWriter

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 500 {
			return
		}

		headers := make(map[string]string)
		for k := range c.Writer.Header() {
			if k == RequestIDHeader {
				continue
			}
			headers[k] = c.Writer.Header().Get(k)
		}
		data, err := json.Marshal(&idempotencyRecord{
			BodyHash:   bodyHash,
			StatusCode: status,
			Headers:    headers,
			Body:       respWriter.body.Bytes(),
		})
		if err == nil {
			_ = store.Save(ctx, cacheKey, data, cfg.TTL)
		}
	}
}

// idempotencyCacheKey scopes a client key to the caller, method and route.
func idempotencyCacheKey(c *gin.Context, idempotencyKey string) string {
	scope := GetUserID(c).String()
	hash := sha256.Sum256([]byte(scope + ":" + c.Request.Method + ":" + c.FullPath() + ":" + c.Request.URL.Path + ":" + idempotencyKey))
	return hex.EncodeToString(hash[:])
}

// hashRequestBody hashes the request body and restores it for the handler.
func hashRequestBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}
