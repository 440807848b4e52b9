package types

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_TENANT        = "tnnt"
	UUID_PREFIX_SUBSCRIPTION  = "subs"
	UUID_PREFIX_BILLING_EVENT = "bevt"
	UUID_PREFIX_PAYMENT       = "pmnt"
	UUID_PREFIX_OUTBOX        = "obox"
)

// GenerateUUID returns a ULID, which is lexicographically sortable by
// creation time.
func GenerateUUID() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String())
}

// GenerateUUIDWithPrefix returns a prefixed ULID, e.g. "tnnt_01h2...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
