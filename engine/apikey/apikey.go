// Package apikey models the workspace-scoped APIKey entity and the hashing
// service that generates, verifies, and looks up keys without ever
// persisting the plaintext value.
package apikey

import (
	"fmt"
	"net"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

const (
	// KeyLength is the number of random bytes generated before hex encoding.
	KeyLength = 20 // 40 hex chars
	// KeyPrefix is the literal prefix every generated plaintext key carries.
	KeyPrefix = "mfk_"
	// PrefixLookupLength is the number of post-prefix characters stored
	// unhashed for database prefix lookups.
	PrefixLookupLength = 10
	// LastFourLength is the number of trailing characters kept for display.
	LastFourLength = 4
)

// APIKey is a workspace-scoped credential for programmatic access (AKY-).
// The plaintext key is never stored: KeyHash is an Argon2id digest,
// LookupPrefix speeds up the DB search for it, and LastFour is shown to the
// user for identification.
type APIKey struct {
	ID          core.ID
	WorkspaceID core.ID
	Name        string
	KeyHash     string
	LookupPrefix string
	LastFour    string
	Permissions []string
	AllowedIPs  []string
	ExpiresAt   *time.Time
	IsActive    bool
	UsageCount  int64
	LastUsedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates an APIKey record from an already-generated, already-hashed
// key. Use Service.Generate to produce the plaintext/hash pair first.
func New(workspaceID core.ID, name, keyHash, lookupPrefix, lastFour string, permissions []string, expiresAt *time.Time) (*APIKey, error) {
	if workspaceID.IsZero() {
		return nil, fmt.Errorf("workspace id is required")
	}
	if name == "" {
		return nil, fmt.Errorf("api key name cannot be empty")
	}
	if keyHash == "" {
		return nil, fmt.Errorf("key hash cannot be empty")
	}
	id, err := core.NewID(core.PrefixAPIKey)
	if err != nil {
		return nil, fmt.Errorf("api key: %w", err)
	}
	now := time.Now().UTC()
	return &APIKey{
		ID:           id,
		WorkspaceID:  workspaceID,
		Name:         name,
		KeyHash:      keyHash,
		LookupPrefix: lookupPrefix,
		LastFour:     lastFour,
		Permissions:  permissions,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsExpired reports whether the key's ExpiresAt has passed.
func (k *APIKey) IsExpired() bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now().UTC())
}

// Usable reports whether the key may currently authenticate a request.
func (k *APIKey) Usable() bool {
	return k.IsActive && !k.IsExpired()
}

// Revoke deactivates the key.
func (k *APIKey) Revoke() {
	k.IsActive = false
	k.UpdatedAt = time.Now().UTC()
}

// HasPermission reports whether permission is granted. An empty
// Permissions list grants everything (unrestricted key).
func (k *APIKey) HasPermission(permission string) bool {
	if len(k.Permissions) == 0 {
		return true
	}
	for _, p := range k.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// AllowsIP reports whether clientIP is permitted. An empty AllowedIPs list
// allows any address.
func (k *APIKey) AllowsIP(clientIP string) bool {
	if len(k.AllowedIPs) == 0 {
		return true
	}
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false
	}
	for _, allowed := range k.AllowedIPs {
		if cidrIP, cidrNet, err := net.ParseCIDR(allowed); err == nil {
			if cidrNet.Contains(ip) {
				return true
			}
			_ = cidrIP
			continue
		}
		if allowed == clientIP {
			return true
		}
	}
	return false
}

// RecordUsage bumps the usage counter and last-used timestamp.
func (k *APIKey) RecordUsage() {
	k.UsageCount++
	now := time.Now().UTC()
	k.LastUsedAt = &now
	k.UpdatedAt = now
}
