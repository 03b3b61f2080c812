// Package script models the global Script and workspace-scoped CustomScript
// entities Nodes invoke.
package script

import (
	"fmt"
	"strings"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// Script is a globally-available, immutable-content script (SCR-).
type Script struct {
	ID               core.ID
	Name             string
	Content          string
	FilePath         string
	RequiredPackages []string
	InputSchema      []byte
	OutputSchema     []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// New creates a Script. Content is immutable after creation: there is no
// Update-content method, only metadata setters.
func New(name, content, filePath string, requiredPackages []string, inputSchema, outputSchema []byte) (*Script, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("script name cannot be empty")
	}
	if content == "" {
		return nil, fmt.Errorf("script content cannot be empty")
	}
	id, err := core.NewID(core.PrefixScript)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	now := time.Now().UTC()
	return &Script{
		ID:               id,
		Name:             name,
		Content:          content,
		FilePath:         filePath,
		RequiredPackages: requiredPackages,
		InputSchema:      inputSchema,
		OutputSchema:      outputSchema,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ApprovalStatus is the review state of a CustomScript.
type ApprovalStatus string

const (
	ApprovalPending         ApprovalStatus = "PENDING"
	ApprovalApproved        ApprovalStatus = "APPROVED"
	ApprovalRejected        ApprovalStatus = "REJECTED"
	ApprovalRevisionNeeded  ApprovalStatus = "REVISION_NEEDED"
)

// TestStatus is the test-execution state of a CustomScript.
type TestStatus string

const (
	TestUntested TestStatus = "UNTESTED"
	TestTesting  TestStatus = "TESTING"
	TestPassed   TestStatus = "PASSED"
	TestFailed   TestStatus = "FAILED"
	TestPartial  TestStatus = "PARTIAL"
)

// CustomScript is a workspace-scoped script requiring approval before a Node
// may reference it at execution time (CUS-).
type CustomScript struct {
	ID               core.ID
	WorkspaceID      core.ID
	Name             string
	Content          string
	FilePath         string
	RequiredPackages []string
	InputSchema      []byte
	OutputSchema     []byte
	ApprovalStatus   ApprovalStatus
	TestStatus       TestStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// NewCustom creates a CustomScript in PENDING approval / UNTESTED test state.
func NewCustom(workspaceID core.ID, name, content, filePath string, requiredPackages []string, inputSchema, outputSchema []byte) (*CustomScript, error) {
	if workspaceID.IsZero() {
		return nil, fmt.Errorf("workspace id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("custom script name cannot be empty")
	}
	if content == "" {
		return nil, fmt.Errorf("custom script content cannot be empty")
	}
	id, err := core.NewID(core.PrefixCustom)
	if err != nil {
		return nil, fmt.Errorf("custom script: %w", err)
	}
	now := time.Now().UTC()
	return &CustomScript{
		ID:               id,
		WorkspaceID:      workspaceID,
		Name:             name,
		Content:          content,
		FilePath:         filePath,
		RequiredPackages: requiredPackages,
		InputSchema:      inputSchema,
		OutputSchema:     outputSchema,
		ApprovalStatus:   ApprovalPending,
		TestStatus:       TestUntested,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsApproved reports whether a Node may reference this CustomScript at
// execution time.
func (c *CustomScript) IsApproved() bool {
	return c.ApprovalStatus == ApprovalApproved
}

// SetApprovalStatus transitions the review state.
func (c *CustomScript) SetApprovalStatus(s ApprovalStatus) {
	c.ApprovalStatus = s
	c.UpdatedAt = time.Now().UTC()
}

// SetTestStatus transitions the test-execution state.
func (c *CustomScript) SetTestStatus(s TestStatus) {
	c.TestStatus = s
	c.UpdatedAt = time.Now().UTC()
}
