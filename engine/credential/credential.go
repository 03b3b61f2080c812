// Package credential models the Credential and Database entities, whose
// sensitive fields are stored as ciphertext and transparently decrypted on
// read by an authorized caller.
package credential

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/secretbox"
)

// Credential is a workspace-scoped named secret, typically an API token for
// an outbound integration (CRD-).
type Credential struct {
	ID          core.ID
	WorkspaceID core.ID
	Name        string
	Fields      map[string]string // cleartext fields (e.g. "client_id")
	SecretField string            // base64 ciphertext (e.g. the API token)
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// New creates a Credential, sealing secret under box.
func New(workspaceID core.ID, name string, fields map[string]string, box *secretbox.Box, secret string) (*Credential, error) {
	if workspaceID.IsZero() {
		return nil, fmt.Errorf("workspace id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("credential name cannot be empty")
	}
	if box == nil {
		return nil, fmt.Errorf("credential requires a box")
	}
	sealed, err := box.SealString(secret)
	if err != nil {
		return nil, fmt.Errorf("seal credential secret: %w", err)
	}
	id, err := core.NewID(core.PrefixCredential)
	if err != nil {
		return nil, fmt.Errorf("credential: %w", err)
	}
	now := time.Now().UTC()
	return &Credential{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        name,
		Fields:      fields,
		SecretField: base64.StdEncoding.EncodeToString(sealed),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Reveal decrypts the secret field.
func (c *Credential) Reveal(box *secretbox.Box) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(c.SecretField)
	if err != nil {
		return "", core.NewError(fmt.Errorf("malformed ciphertext: %w", err), core.CodeSecretIntegrity, nil)
	}
	return box.OpenString(blob)
}

// Database is a workspace-scoped connection descriptor whose password is
// stored as ciphertext (DB-).
type Database struct {
	ID          core.ID
	WorkspaceID core.ID
	Name        string
	Host        string
	Port        int
	Username    string
	DatabaseName string
	Password    string // base64 ciphertext
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// NewDatabase creates a Database connection descriptor, sealing its password.
func NewDatabase(workspaceID core.ID, name, host string, port int, username, databaseName string, box *secretbox.Box, password string) (*Database, error) {
	if workspaceID.IsZero() {
		return nil, fmt.Errorf("workspace id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}
	if host == "" {
		return nil, fmt.Errorf("database host cannot be empty")
	}
	if port <= 0 {
		return nil, fmt.Errorf("database port must be positive")
	}
	if box == nil {
		return nil, fmt.Errorf("database requires a box")
	}
	sealed, err := box.SealString(password)
	if err != nil {
		return nil, fmt.Errorf("seal database password: %w", err)
	}
	id, err := core.NewID(core.PrefixDatabase)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	now := time.Now().UTC()
	return &Database{
		ID:           id,
		WorkspaceID:  workspaceID,
		Name:         name,
		Host:         host,
		Port:         port,
		Username:     username,
		DatabaseName: databaseName,
		Password:     base64.StdEncoding.EncodeToString(sealed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// RevealPassword decrypts the connection password.
func (d *Database) RevealPassword(box *secretbox.Box) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(d.Password)
	if err != nil {
		return "", core.NewError(fmt.Errorf("malformed ciphertext: %w", err), core.CodeSecretIntegrity, nil)
	}
	return box.OpenString(blob)
}
