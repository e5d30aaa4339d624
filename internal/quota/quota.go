// Package quota gates exchange admission: a bounded count of questions per
// session plus a wall-clock session expiry. State survives restarts through
// the injected store; that is the only durable state in the subsystem.
package quota

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/daniss/Raggy-sub000/internal/storage"
	"github.com/daniss/Raggy-sub000/pkg/logger"
)

// StoreKey is the fixed key quota state lives under.
const StoreKey = "quota"

var (
	ErrExhausted      = errors.New("session quota exhausted")
	ErrSessionExpired = errors.New("session expired")
)

// State is the persisted quota record. Used never decreases; once it reaches
// Max the session is unusable until re-authentication resets it, which is
// outside this subsystem.
type State struct {
	Used      int   `json:"used"`
	Max       int   `json:"max"`
	ExpiresAt int64 `json:"expiresAt"` // epoch ms
}

type Guard struct {
	mu    sync.Mutex
	store storage.Store
	state State
	now   func() time.Time
}

// NewGuard loads quota state from the store, starting a fresh session of max
// exchanges and the given lifetime when no usable record exists. An expired
// record is not resurrected: the guard keeps refusing until re-auth replaces
// it, so a reload cannot reset the quota.
func NewGuard(store storage.Store, max int, ttl time.Duration) (*Guard, error) {
	g := &Guard{
		store: store,
		now:   time.Now,
	}

	data, err := store.Get(StoreKey)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &g.state); jsonErr != nil || g.state.Max <= 0 {
			logger.Warnf("quota: discarding unreadable state: %v", jsonErr)
			g.state = freshState(max, ttl, g.now())
		}
	case errors.Is(err, storage.ErrKeyNotFound):
		g.state = freshState(max, ttl, g.now())
	default:
		return nil, err
	}

	if err := g.persist(); err != nil {
		return nil, err
	}

	return g, nil
}

// CanAdmit reports whether a new exchange may start: quota left and session
// not expired. A denied request is rejected at the UI boundary, never queued.
func (g *Guard) CanAdmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admissible() == nil
}

// Admit consumes one exchange. last is set when this admission spends the
// final slot of the session, so the finalized message can carry a one-time
// warning.
func (g *Guard) Admit() (last bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.admissible(); err != nil {
		return false, err
	}

	g.state.Used++
	if err := g.persist(); err != nil {
		// Admission stands; in-memory state still enforces the ceiling.
		logger.Errorf("quota: failed to persist state: %v", err)
	}

	return g.state.Used == g.state.Max, nil
}

// Remaining returns how many exchanges the session may still admit.
func (g *Guard) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	left := g.state.Max - g.state.Used
	if left < 0 {
		return 0
	}
	return left
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) admissible() error {
	if g.now().UnixMilli() >= g.state.ExpiresAt {
		return ErrSessionExpired
	}
	if g.state.Used >= g.state.Max {
		return ErrExhausted
	}
	return nil
}

func (g *Guard) persist() error {
	data, err := json.Marshal(g.state)
	if err != nil {
		return err
	}
	return g.store.Set(StoreKey, data)
}

func freshState(max int, ttl time.Duration, now time.Time) State {
	return State{
		Used:      0,
		Max:       max,
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}
}
