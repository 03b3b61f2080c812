package core

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/segmentio/ksuid"
)

// ID is an opaque, type-prefixed identifier (e.g. "WSP-1A2B3C...").
type ID string

// Prefix enumerates the entity-type prefixes used across the execution core.
type Prefix string

const (
	PrefixWorkspace  Prefix = "WSP"
	PrefixWorkflow   Prefix = "WFL"
	PrefixNode       Prefix = "NOD"
	PrefixEdge       Prefix = "EDG"
	PrefixTrigger    Prefix = "TRG"
	PrefixExecution  Prefix = "EXC"
	PrefixExecInput  Prefix = "EXI"
	PrefixExecOutput Prefix = "EXO"
	PrefixUser       Prefix = "USR"
	PrefixScript     Prefix = "SCR"
	PrefixCustom     Prefix = "CUS"
	PrefixVariable   Prefix = "VAR"
	PrefixCredential Prefix = "CRD"
	PrefixDatabase   Prefix = "DB"
	PrefixFile       Prefix = "FIL"
	PrefixAPIKey     Prefix = "AKY"
)

const hexLength = ksuid.ByteLength * 2

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is the zero value ("").
func (id ID) IsZero() bool {
	return id == ""
}

// Prefix returns the type prefix carried by the ID, or "" if malformed.
func (id ID) Prefix() Prefix {
	parts := strings.SplitN(string(id), "-", 2)
	if len(parts) != 2 {
		return ""
	}
	return Prefix(parts[0])
}

// NewID generates a fresh ID of the given prefix. The hex body is a ksuid's
// raw bytes, so ids sort lexicographically by creation time within a
// prefix even though the wire format stays the PREFIX-HEX shape; uniqueness
// is ultimately enforced by the store's unique constraint on the column.
func NewID(prefix Prefix) (ID, error) {
	k, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate new id: %w", err)
	}
	return ID(fmt.Sprintf("%s-%s", prefix, strings.ToUpper(hex.EncodeToString(k.Bytes())))), nil
}

// MustNewID generates a new ID and panics on failure; only safe when the
// caller has no recovery path for a broken RNG (e.g. process startup).
func MustNewID(prefix Prefix) ID {
	id, err := NewID(prefix)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseID validates that s carries the expected prefix and hex shape.
func ParseID(prefix Prefix, s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("empty id")
	}
	want := string(prefix) + "-"
	if !strings.HasPrefix(s, want) {
		return "", fmt.Errorf("invalid id %q: expected prefix %q", s, prefix)
	}
	hexPart := s[len(want):]
	if len(hexPart) != hexLength {
		return "", fmt.Errorf("invalid id %q: expected %d hex characters", s, hexLength)
	}
	if _, err := hex.DecodeString(strings.ToLower(hexPart)); err != nil {
		return "", fmt.Errorf("invalid id %q: not hex: %w", s, err)
	}
	return ID(s), nil
}
