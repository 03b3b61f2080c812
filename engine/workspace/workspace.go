// Package workspace models the tenant boundary every other entity in the
// execution core is scoped to, plus the quota accountant (C4) that gates
// creates against the workspace's plan limits.
package workspace

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/plan"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Workspace is the multi-tenant boundary (WSP-) every workflow, script,
// variable, credential, file, and API key belongs to.
type Workspace struct {
	ID                       core.ID
	OwnerUserID              core.ID
	Name                     string
	Slug                     string
	Plan                     plan.Name
	IsSuspended              bool
	CurrentWorkflowCount     int
	CurrentCustomScriptCount int
	CurrentStorageBytes      int64
	CurrentAPIKeyCount       int
	CreatedAt                time.Time
	UpdatedAt                time.Time
	DeletedAt                *time.Time
}

// New creates a Workspace owned by ownerUserID on the given plan tier.
// The owner is tracked as the single canonical OwnerUserID field rather than
// a separate membership roster, which trivially satisfies the "exactly one
// Owner at all times" invariant: there is exactly one field to hold it.
func New(ownerUserID core.ID, name, slug string, planName plan.Name) (*Workspace, error) {
	if ownerUserID.IsZero() {
		return nil, fmt.Errorf("owner user id is required")
	}
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if !planName.IsValid() {
		return nil, fmt.Errorf("invalid plan: %s", planName)
	}
	id, err := core.NewID(core.PrefixWorkspace)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	now := time.Now().UTC()
	return &Workspace{
		ID:          id,
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(name),
		Slug:        slug,
		Plan:        planName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateSlug checks that s is a non-empty, lowercase, hyphen-delimited
// identifier safe for use in URLs.
func ValidateSlug(s string) error {
	if s == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if len(s) > 63 {
		return fmt.Errorf("slug must be at most 63 characters")
	}
	if !slugRe.MatchString(s) {
		return fmt.Errorf("slug must be lowercase alphanumeric with single hyphens")
	}
	return nil
}

// IsActive reports whether the workspace can currently accept new work.
func (w *Workspace) IsActive() bool {
	return w != nil && !w.IsSuspended && w.DeletedAt == nil
}

// Suspend marks the workspace suspended; suspension does not alter counters.
func (w *Workspace) Suspend() {
	w.IsSuspended = true
	w.UpdatedAt = time.Now().UTC()
}

// Unsuspend reverses Suspend.
func (w *Workspace) Unsuspend() {
	w.IsSuspended = false
	w.UpdatedAt = time.Now().UTC()
}
