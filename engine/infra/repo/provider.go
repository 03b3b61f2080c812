// Package repo wires the configured database driver into concrete
// engine/store implementations, independent of any single engine/* package.
package repo

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/miniflow/miniflow/engine/infra/postgres"
	"github.com/miniflow/miniflow/engine/secretbox"
	"github.com/miniflow/miniflow/engine/store"
	"github.com/miniflow/miniflow/engine/workspace"
	"github.com/miniflow/miniflow/pkg/config"
)

const fallbackMigrationTimeout = 2 * time.Minute

// Repos exposes every engine/store repository plus the execution-path
// boundary implementations, all backed by a single postgres connection pool.
type Repos struct {
	Workspaces    store.Workspaces
	Workflows     store.Workflows
	Nodes         store.Nodes
	Edges         store.Edges
	Triggers      store.Triggers
	Scripts       store.Scripts
	CustomScripts store.CustomScripts
	Variables     store.Variables
	Credentials   store.Credentials
	Databases     store.Databases
	Files         store.Files
	APIKeys       store.APIKeys
	Executions    *postgres.ExecutionRepo

	// Reference and DatabaseReference satisfy engine/reference's
	// Variables/Credentials/Files and Databases contracts respectively,
	// ready to hand to reference.NewResolver alongside Executions (which
	// already satisfies reference.NodeOutputs via SuccessResult).
	Reference         *ReferenceStore
	DatabaseReference *DatabaseReferenceStore

	// Quota is C4's accountant, wired to Executions' live concurrent-execution
	// count so trigger admission can enforce plan.Limits.MaxConcurrentExecutions.
	Quota *workspace.Accountant
}

// NewRepos connects to the configured database, applies migrations when
// requested, and returns every repository backed by that connection. Only
// DBTypePostgres is implemented; other DatabaseType values are accepted by
// configuration validation but rejected here.
func NewRepos(ctx context.Context, cfg *config.Config) (*Repos, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("repo: config is required")
	}
	if cfg.Database.Type != config.DBTypePostgres {
		return nil, nil, fmt.Errorf("repo: unsupported database type %q", cfg.Database.Type)
	}

	pgCfg := &postgres.Config{
		Host:            cfg.Database.Host,
		Port:            fmt.Sprintf("%d", cfg.Database.Port),
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	st, err := postgres.NewStore(ctx, pgCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("repo: postgres store: %w", err)
	}

	migrationCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackMigrationTimeout)
	defer cancel()
	if err := postgres.ApplyMigrationsWithLock(migrationCtx, postgres.DSNFor(pgCfg)); err != nil {
		_ = st.Close(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("repo: postgres migrations: %w", err)
	}

	box, err := secretbox.New(deriveMasterKey(cfg.Encryption.MasterKey))
	if err != nil {
		_ = st.Close(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("repo: secretbox: %w", err)
	}

	pool := st.Pool()
	repos := &Repos{
		Workspaces:    postgres.NewWorkspaceRepo(pool),
		Workflows:     postgres.NewWorkflowRepo(pool),
		Nodes:         postgres.NewNodeRepo(pool),
		Edges:         postgres.NewEdgeRepo(pool),
		Triggers:      postgres.NewTriggerRepo(pool),
		Scripts:       postgres.NewScriptRepo(pool),
		CustomScripts: postgres.NewCustomScriptRepo(pool),
		Variables:     postgres.NewVariableRepo(pool, box),
		Credentials:   postgres.NewCredentialRepo(pool, box),
		Databases:     postgres.NewDatabaseRepo(pool, box),
		Files:         postgres.NewFileRepo(pool),
		APIKeys:       postgres.NewAPIKeyRepo(pool),
		Executions:    postgres.NewExecutionRepo(pool),
	}
	repos.Reference = NewReferenceStore(repos.Variables, repos.Credentials, repos.Files, box)
	repos.DatabaseReference = NewDatabaseReferenceStore(repos.Databases, box)
	repos.Quota = NewQuotaAccountant(repos.Executions)
	cleanup := func() { _ = st.Close(context.WithoutCancel(ctx)) }
	return repos, cleanup, nil
}

// deriveMasterKey folds an arbitrary-length configured key into the 32 bytes
// secretbox.New requires, the same way secretbox derives its key fingerprint.
func deriveMasterKey(masterKey string) []byte {
	sum := sha256.Sum256([]byte(masterKey))
	return sum[:]
}
