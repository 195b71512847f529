// ABOUTME: Temporary identifiers for optimistically created entities
// ABOUTME: Uses monotonic ULIDs so temp ids sort in creation order
package models

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const tempIDPrefix = "tmp-"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewTempID returns a client-side id used until the server assigns the real one.
func NewTempID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return tempIDPrefix + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// IsTempID reports whether id was produced by NewTempID (or is empty).
func IsTempID(id string) bool {
	return id == "" || strings.HasPrefix(id, tempIDPrefix)
}
