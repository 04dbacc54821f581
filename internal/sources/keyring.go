package sources

import (
	"sync"
	"time"
)

type KeyStatus int

const (
	KeyOK KeyStatus = iota
	KeyCooldown
	KeyError
)

// Key tracks one API credential. Transitions are driven only by fetch
// outcomes: a rate-limit response moves it to cooldown until the reported
// reset time, a hard failure to error, a success back to ok.
type Key struct {
	Value   string
	Status  KeyStatus
	ResetAt time.Time
	Usage   int
	Limit   int
}

// Keyring rotates between credentials round-robin, skipping keys that are
// cooling down so a rate-limited key never blocks the whole fetch.
type Keyring struct {
	keys []*Key
	next int
	mu   sync.Mutex
}

func NewKeyring(values []string) *Keyring {
	keys := make([]*Key, 0, len(values))
	for _, v := range values {
		keys = append(keys, &Key{Value: v})
	}
	return &Keyring{keys: keys}
}

// Next returns the next usable key, or false when every key is cooling down
// or errored. Keys whose reset time has passed are returned to ok first.
func (k *Keyring) Next(now time.Time) (*Key, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i := 0; i < len(k.keys); i++ {
		key := k.keys[(k.next+i)%len(k.keys)]
		if key.Status == KeyCooldown && !now.Before(key.ResetAt) {
			key.Status = KeyOK
			key.Usage = 0
		}
		if key.Status == KeyOK {
			k.next = (k.next + i + 1) % len(k.keys)
			key.Usage++
			return key, true
		}
	}
	return nil, false
}

func (k *Keyring) MarkLimited(key *Key, resetAt time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key.Status = KeyCooldown
	key.ResetAt = resetAt
}

func (k *Keyring) MarkError(key *Key) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key.Status = KeyError
}

func (k *Keyring) MarkOK(key *Key) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key.Status = KeyOK
	key.ResetAt = time.Time{}
}
