package statestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey_TenantIsolation(t *testing.T) {
	keyA := BuildKey("bf", "tenant-a", "192.168.1.100")
	keyB := BuildKey("bf", "tenant-b", "192.168.1.100")

	assert.NotEqual(t, keyA, keyB, "no state key used for one tenant may be legible as another tenant's key (spec invariant 6)")
}

func TestBuildKey_DifferentPrefixesNeverCollide(t *testing.T) {
	k1 := BuildKey("bf", "tenant-a", "1.2.3.4")
	k2 := BuildKey("newcountry", "tenant-a", "1.2.3.4")
	assert.NotEqual(t, k1, k2)
}

func TestFieldValuesOrUnknown_SubstitutesUnknownForMissingFields(t *testing.T) {
	lookup := func(field string) (string, bool) {
		if field == "user" {
			return "alice", true
		}
		return "", false
	}

	values := FieldValuesOrUnknown([]string{"user", "host"}, lookup)
	assert.Equal(t, []string{"alice", "unknown"}, values)
}
