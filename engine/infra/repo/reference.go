package repo

import (
	"context"
	"fmt"
	"os"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/secretbox"
	"github.com/miniflow/miniflow/engine/store"
)

// ReferenceStore adapts the plain store.Variables/Credentials/Files
// repositories, plus the workspace secretbox, into the narrower
// engine/reference.Variables/Credentials/Files contracts a Resolver needs.
// Database is handled by the separate DatabaseReferenceStore below: its
// AsMap has the same signature as Credentials.AsMap but a different body,
// and one type cannot implement both.
//
// File content is read straight off local disk at File.StoragePath: nothing
// in this tree calls an object-storage client with its own
// credential/bucket wiring, so local disk is the grounded, stdlib-only path.
type ReferenceStore struct {
	variables   store.Variables
	credentials store.Credentials
	files       store.Files
	box         *secretbox.Box
}

func NewReferenceStore(
	variables store.Variables,
	credentials store.Credentials,
	files store.Files,
	box *secretbox.Box,
) *ReferenceStore {
	return &ReferenceStore{variables: variables, credentials: credentials, files: files, box: box}
}

// Reveal returns a workspace Variable's plaintext value.
func (s *ReferenceStore) Reveal(ctx context.Context, workspaceID, variableID core.ID) (string, error) {
	v, err := s.variables.Get(ctx, variableID)
	if err != nil {
		return "", err
	}
	if v.WorkspaceID != workspaceID {
		return "", fmt.Errorf("variable %s does not belong to workspace %s", variableID, workspaceID)
	}
	return v.Reveal(s.box)
}

// AsMap returns a Credential's cleartext fields plus its decrypted secret
// under the "secret" key.
func (s *ReferenceStore) AsMap(ctx context.Context, workspaceID, credentialID core.ID) (map[string]any, error) {
	c, err := s.credentials.Get(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if c.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("credential %s does not belong to workspace %s", credentialID, workspaceID)
	}
	secret, err := c.Reveal(s.box)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		out[k] = v
	}
	out["secret"] = secret
	return out, nil
}

// Metadata returns a File's non-content fields as a plain map.
func (s *ReferenceStore) Metadata(ctx context.Context, workspaceID, fileID core.ID) (map[string]any, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("file %s does not belong to workspace %s", fileID, workspaceID)
	}
	return map[string]any{
		"id":           f.ID.String(),
		"name":         f.Name,
		"content_type": f.ContentType,
		"size_bytes":   f.SizeBytes,
		"checksum":     f.Checksum,
	}, nil
}

// Content reads the stored artifact's raw bytes off local disk.
func (s *ReferenceStore) Content(ctx context.Context, workspaceID, fileID core.ID) ([]byte, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("file %s does not belong to workspace %s", fileID, workspaceID)
	}
	return os.ReadFile(f.StoragePath)
}

// DatabaseReferenceStore adapts store.Databases into reference.Databases,
// kept separate from ReferenceStore since Database is a distinct aggregate
// with its own Reveal (RevealPassword).
type DatabaseReferenceStore struct {
	databases store.Databases
	box       *secretbox.Box
}

func NewDatabaseReferenceStore(databases store.Databases, box *secretbox.Box) *DatabaseReferenceStore {
	return &DatabaseReferenceStore{databases: databases, box: box}
}

func (s *DatabaseReferenceStore) AsMap(ctx context.Context, workspaceID, databaseID core.ID) (map[string]any, error) {
	d, err := s.databases.Get(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	if d.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("database %s does not belong to workspace %s", databaseID, workspaceID)
	}
	password, err := d.RevealPassword(s.box)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"host":     d.Host,
		"port":     d.Port,
		"username": d.Username,
		"database": d.DatabaseName,
		"password": password,
	}, nil
}
