package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// mail Message-IDs and relay envelopes in dispatch order when listed.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
