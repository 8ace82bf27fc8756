package unlock

import (
	"time"

	"github.com/fakeyudi/touchgrass/internal/nature"
)

// Policy decides whether a verified category may unlock at a given time.
type Policy func(c nature.Category, at time.Time) bool

// DaylightOnly rejects grass verifications outside the local hours from
// through to, both inclusive. Every other category is always allowed.
func DaylightOnly(from, to int) Policy {
	return func(c nature.Category, at time.Time) bool {
		if c != nature.Grass {
			return true
		}
		h := at.Hour()
		return h >= from && h <= to
	}
}

// AllowAll accepts every verification.
func AllowAll(nature.Category, time.Time) bool { return true }
