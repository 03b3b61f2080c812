// Package variable models the workspace-scoped Variable entity, transparently
// encrypting secret values at rest via engine/secretbox.
package variable

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/secretbox"
)

// Variable is a workspace-scoped key/value pair (VAR-). When IsSecret the
// persisted Value is ciphertext produced by a Box; plaintext is only ever
// reconstructed at reference-resolution time.
type Variable struct {
	ID          core.ID
	WorkspaceID core.ID
	Key         string
	Value       string
	IsSecret    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// New creates a plaintext Variable.
func New(workspaceID core.ID, key, value string) (*Variable, error) {
	return newVariable(workspaceID, key, value, false)
}

// NewSecret creates a Variable whose Value is already sealed ciphertext.
func NewSecret(workspaceID core.ID, key string, box *secretbox.Box, plaintext string) (*Variable, error) {
	if box == nil {
		return nil, fmt.Errorf("secret variable requires a box")
	}
	sealed, err := box.SealString(plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal variable value: %w", err)
	}
	return newVariable(workspaceID, key, base64.StdEncoding.EncodeToString(sealed), true)
}

func newVariable(workspaceID core.ID, key, value string, isSecret bool) (*Variable, error) {
	if workspaceID.IsZero() {
		return nil, fmt.Errorf("workspace id is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("variable key cannot be empty")
	}
	id, err := core.NewID(core.PrefixVariable)
	if err != nil {
		return nil, fmt.Errorf("variable: %w", err)
	}
	now := time.Now().UTC()
	return &Variable{
		ID:          id,
		WorkspaceID: workspaceID,
		Key:         key,
		Value:       value,
		IsSecret:    isSecret,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Reveal returns the plaintext value, decrypting it via box when IsSecret.
func (v *Variable) Reveal(box *secretbox.Box) (string, error) {
	if !v.IsSecret {
		return v.Value, nil
	}
	if box == nil {
		return "", fmt.Errorf("secret variable %s requires a box to reveal", v.ID)
	}
	blob, err := base64.StdEncoding.DecodeString(v.Value)
	if err != nil {
		return "", core.NewError(fmt.Errorf("malformed ciphertext: %w", err), core.CodeSecretIntegrity, nil)
	}
	return box.OpenString(blob)
}

// SetValue replaces the stored value, re-sealing it when IsSecret.
func (v *Variable) SetValue(box *secretbox.Box, plaintext string) error {
	if v.IsSecret {
		sealed, err := box.SealString(plaintext)
		if err != nil {
			return fmt.Errorf("seal variable value: %w", err)
		}
		v.Value = base64.StdEncoding.EncodeToString(sealed)
	} else {
		v.Value = plaintext
	}
	v.UpdatedAt = time.Now().UTC()
	return nil
}
