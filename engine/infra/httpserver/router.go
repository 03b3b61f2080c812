package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miniflow/miniflow/engine/apikey"
	"github.com/miniflow/miniflow/engine/auth"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/engine/infra/cache"
	"github.com/miniflow/miniflow/engine/ratelimit"
	"github.com/miniflow/miniflow/engine/store"
	"github.com/miniflow/miniflow/engine/workspace"
)

// Deps bundles everything the HTTP surface needs to construct its routes.
// KeyStore/Service/Accountant are optional: a nil KeyStore leaves every
// route open, which is the shape the quickstart command runs with.
// MetricsHandler is optional: a nil handler just skips registering the
// /metrics route.
type Deps struct {
	Triggers   store.Triggers
	Workflows  store.Workflows
	Workspaces store.Workspaces
	Executions ExecutionReader
	Planner    *execution.Planner

	// Quota is C4's accountant; a nil Quota skips the concurrent-execution
	// check at trigger admission, the shape quickstart runs with.
	Quota *workspace.Accountant

	// Locks guards against two concurrent duplicate fires of the same
	// trigger (e.g. a racing webhook redelivery); a nil LockManager skips
	// the guard, the shape quickstart and Redis-less deployments run with.
	Locks cache.LockManager

	KeyStore   auth.KeyStore
	APIKeys    *apikey.Service
	Accountant *ratelimit.Accountant
	Thresholds ratelimit.Thresholds

	MetricsPath    string
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine serving the trigger-intake and
// execution-status surface (C7/C8 at the edge, plus a C11 read endpoint).
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), auth.TraceMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.Status(200) })
	if deps.MetricsHandler != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.MetricsHandler))
	}

	v1 := r.Group("/v1")
	if deps.KeyStore != nil && deps.APIKeys != nil {
		v1.Use(auth.APIKeyAuth(deps.KeyStore, deps.APIKeys))
		if deps.Accountant != nil {
			v1.Use(auth.RateLimitByAPIKey(deps.Accountant, deps.Thresholds))
		}
	}

	triggerHandler := NewTriggerHandler(deps.Triggers, deps.Workflows, deps.Workspaces, deps.Quota, deps.Locks, deps.Planner)
	v1.POST("/triggers/:trigger_id/fire", triggerHandler.Fire)

	executionHandler := NewExecutionHandler(deps.Executions)
	v1.GET("/executions/:execution_id", executionHandler.Get)

	return r
}
