package job

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	runIDMu      sync.Mutex
	runIDEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a ULID. IDs from one process sort in creation order, even
// within the same millisecond.
func NewRunID() (string, error) {
	runIDMu.Lock()
	defer runIDMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), runIDEntropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
