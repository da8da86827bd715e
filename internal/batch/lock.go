package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"ffkit/internal/services"
)

// lockDirectory takes an exclusive, non-blocking lock for dir under
// stateDir so two batches never convert the same directory at once.
func lockDirectory(stateDir, dir string) (*flock.Flock, error) {
	lockDir := filepath.Join(stateDir, "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrLocked, dir, "lock", "create lock directory", err)
	}
	sum := sha256.Sum256([]byte(dir))
	lock := flock.New(filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrLocked, dir, "lock", "acquire directory lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrLocked, dir, "lock",
			fmt.Sprintf("another batch holds %s", lock.Path()), nil)
	}
	return lock, nil
}
