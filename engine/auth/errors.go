package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/miniflow/miniflow/engine/core"
)

// SendError writes the §6/§7 error envelope for err and aborts the chain.
func SendError(c *gin.Context, err *core.Error) {
	traceID := core.TraceIDFromContext(c.Request.Context())
	status := core.HTTPStatusForCode(err.Code)
	c.JSON(status, core.NewErrorEnvelope(traceID, status, err.Code, err.Error()))
	c.Abort()
}

// SendUnauthorized aborts the chain with a TOKEN_INVALID problem.
func SendUnauthorized(c *gin.Context, message string) {
	SendError(c, core.NewError(nil, core.CodeTokenInvalid, map[string]any{"message": message}))
}

// SendForbidden aborts the chain with a FORBIDDEN problem.
func SendForbidden(c *gin.Context, message string) {
	SendError(c, core.NewError(nil, core.CodeForbidden, map[string]any{"message": message}))
}
