package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/ratelimit"
	"github.com/miniflow/miniflow/pkg/logger"
)

// RateLimitByAPIKey checks the C5 accountant for the authenticated
// Identity's API key before letting the request proceed. Requests with no
// Identity (public endpoints) pass through untouched.
func RateLimitByAPIKey(accountant *ratelimit.Accountant, thresholds ratelimit.Thresholds) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}
		subject := ratelimit.ResolveSubject(id.APIKeyID, core.ID(""), c.ClientIP())
		if err := accountant.Check(c.Request.Context(), subject, thresholds); err != nil {
			code, _ := core.CodeOf(err)
			if code == core.CodeRateLimited {
				SendError(c, core.NewError(err, core.CodeRateLimited, nil))
				return
			}
			logger.FromContext(c.Request.Context()).With("error", err).Error("rate limit check failed")
			SendError(c, core.NewError(err, core.CodeInternal, nil))
			return
		}
		c.Next()
	}
}
