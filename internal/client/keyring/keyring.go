// Package keyring holds the in-memory master key for the lifetime of a
// session.
//
// Key-at-rest policy: the key lives only in volatile process memory. It is
// set once at login, pairing redemption, or explicit import, and wiped on
// logout; it is never written to disk. A device that restarts re-derives the
// key from the password or re-pairs.
package keyring

import (
	"sync"

	"github.com/antonpetrovs/whisperline/internal/common"
)

// Keyring is a concurrency-safe holder for the master key. Writers are rare
// (login, pairing, logout); readers see either "absent" or one stable value.
type Keyring struct {
	mu  sync.RWMutex
	key []byte
}

func New() *Keyring {
	return &Keyring{}
}

// Set installs the master key. The keyring keeps its own copy so the caller
// may wipe its buffer afterwards.
func (k *Keyring) Set(key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.key = make([]byte, len(key))
	copy(k.key, key)
}

// Get returns the master key and whether one is set. The returned slice must
// be treated as read-only.
func (k *Keyring) Get() ([]byte, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.key == nil {
		return nil, false
	}
	return k.key, true
}

// Clear wipes and drops the key. Callers must stop the sync and refresh
// timers first so no in-flight cycle reads a cleared key.
func (k *Keyring) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	common.WipeByteArray(k.key)
	k.key = nil
}
