// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/feedwatchdog/admin/ports"
	"github.com/google/uuid"
)

// UUID generates UUIDs.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// Prefixed generates compact UUIDs behind a fixed prefix, e.g. "req_3f2a...".
type Prefixed struct {
	Prefix string
}

// New generates a new prefixed ID.
func (p Prefixed) New() string {
	return p.Prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = Prefixed{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
