package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/miniflow/miniflow/engine/apikey"
	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/pkg/logger"
)

// KeyStore is the lookup boundary the API-key middleware authenticates
// against: candidates sharing a lookup prefix, verified by hash.
type KeyStore interface {
	FindByLookupPrefix(ctx context.Context, prefix string) ([]*apikey.APIKey, error)
	RecordUsage(ctx context.Context, id core.ID) error
}

// TraceMiddleware forwards an inbound X-Request-Id or generates one, and
// attaches it to the request context for every downstream log line and
// error envelope.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Request-Id")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-Id", traceID)
		ctx := core.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// APIKeyAuth authenticates the Bearer token against store, verifying the
// Argon2id hash via service and falling back to VerifyDummy on a miss to
// keep the timing profile of a hit and a miss indistinguishable.
func APIKeyAuth(store KeyStore, service *apikey.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())
		token, ok := bearerToken(c)
		if !ok {
			SendUnauthorized(c, "missing or malformed Authorization header")
			return
		}

		prefix := service.LookupPrefix(token)
		candidates, err := store.FindByLookupPrefix(c.Request.Context(), prefix)
		if err != nil {
			log.With("error", err).Error("api key lookup failed")
			SendError(c, core.NewError(err, core.CodeInternal, nil))
			return
		}

		var matched *apikey.APIKey
		for _, candidate := range candidates {
			if service.Verify(token, candidate.KeyHash) {
				matched = candidate
				break
			}
		}
		if matched == nil {
			service.VerifyDummy(token)
			SendUnauthorized(c, "invalid API key")
			return
		}
		if !matched.Usable() {
			SendUnauthorized(c, "API key is expired or revoked")
			return
		}
		if !matched.AllowsIP(c.ClientIP()) {
			SendForbidden(c, "client IP not permitted for this API key")
			return
		}

		if err := store.RecordUsage(c.Request.Context(), matched.ID); err != nil {
			log.With("error", err, "api_key_id", matched.ID).Warn("failed to record api key usage")
		}

		ctx := WithIdentity(c.Request.Context(), identityFromAPIKey(matched))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// JWTAuth authenticates the Bearer token as a signed JWT minted by issuer.
func JWTAuth(issuer *JWTIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			SendUnauthorized(c, "missing or malformed Authorization header")
			return
		}
		id, err := issuer.Verify(token)
		if err != nil {
			SendUnauthorized(c, "invalid or expired token")
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequirePermission aborts the chain with 403 unless the authenticated
// Identity carries permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c.Request.Context())
		if !ok {
			SendUnauthorized(c, "authentication required")
			return
		}
		if !id.HasPermission(permission) {
			SendForbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
