// Package reference generates payment transaction references.
package reference

import (
	"strings"

	"github.com/google/uuid"
)

// Prefix marks every payment reference issued by this service.
const Prefix = "PAY-"

// New returns a fresh payment reference: the fixed prefix plus 10 uppercase
// hex characters of a random UUID. ~1e12 possible suffixes, so collisions
// are rare; callers still retry on a duplicate-key write.
func New() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Prefix + strings.ToUpper(hex[:10])
}
