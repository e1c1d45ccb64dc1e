package session

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Holder owns the authenticated flag of one execution context.
//
// Transitions (Initialize, Refresh, MarkLoggedIn, MarkLoggedOut) are
// serialised and observers are called in transition order while the
// transition is still held, so an observer must not start a transition or
// call Close itself.
type Holder struct {
	store Storage
	log   zerolog.Logger

	transition sync.Mutex

	mu            sync.RWMutex
	authenticated bool
	initialized   bool
	closed        bool

	obsMu     sync.Mutex
	observers map[uint64]func(bool)
	nextObs   uint64

	inbox       chan struct{}
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// NewHolder creates a holder over store. It reports false until Initialize.
func NewHolder(store Storage, log zerolog.Logger) *Holder {
	return &Holder{
		store:     store,
		log:       log.With().Str("component", "session").Logger(),
		observers: make(map[uint64]func(bool)),
		inbox:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Initialize reads the token once and starts listening for storage changes.
// The session value is settled before it returns, even when subscribing
// fails; the returned error only means cross-context updates are off.
func (h *Holder) Initialize() error {
	h.transition.Lock()
	defer h.transition.Unlock()

	h.mu.Lock()
	if h.initialized || h.closed {
		h.mu.Unlock()
		return nil
	}
	h.initialized = true
	h.mu.Unlock()

	h.set(h.tokenPresent())

	unsubscribe, err := h.store.Subscribe(h.notify)
	if err != nil {
		h.log.Warn().Err(err).Msg("Storage change notifications unavailable")
		return fmt.Errorf("failed to subscribe to storage changes: %w", err)
	}
	h.unsubscribe = unsubscribe

	h.wg.Add(1)
	go h.run()

	return nil
}

// Refresh re-derives the session from storage and returns the new value.
// Calling it again without an intervening storage change is a no-op.
func (h *Holder) Refresh() bool {
	h.transition.Lock()
	defer h.transition.Unlock()

	present := h.tokenPresent()
	h.set(present)
	return present
}

// MarkLoggedIn records a login whose token has already been persisted
func (h *Holder) MarkLoggedIn() {
	h.transition.Lock()
	defer h.transition.Unlock()

	h.set(true)
}

// MarkLoggedOut deletes the token and clears the session. Readers never see
// the flag and the storage disagree while it runs. The session is cleared
// even if the delete fails.
func (h *Holder) MarkLoggedOut() error {
	h.transition.Lock()
	defer h.transition.Unlock()

	return h.logout()
}

// Expire logs out because the server refused token. If storage already
// holds a different token, a newer login replaced the refused one and the
// session is left alone.
func (h *Holder) Expire(token string) error {
	h.transition.Lock()
	defer h.transition.Unlock()

	stored, ok, err := h.store.Get(TokenKey)
	if err == nil && ok && stored != "" && stored != token {
		h.log.Debug().Msg("Ignoring rejection of a replaced token")
		h.set(true)
		return nil
	}
	return h.logout()
}

// logout must be called with the transition lock held
func (h *Holder) logout() error {
	h.mu.Lock()
	err := h.store.Remove(TokenKey)
	changed := h.authenticated
	h.authenticated = false
	h.mu.Unlock()

	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to remove token from storage")
		err = fmt.Errorf("failed to remove token: %w", err)
	}
	if changed {
		h.log.Info().Msg("Session logged out")
		h.emit(false)
	}
	return err
}

// Authenticated reports the current session value
func (h *Holder) Authenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.authenticated
}

// Subscribe registers fn to be called with every new session value
func (h *Holder) Subscribe(fn func(authenticated bool)) (cancel func()) {
	h.obsMu.Lock()
	id := h.nextObs
	h.nextObs++
	h.observers[id] = fn
	h.obsMu.Unlock()

	return func() {
		h.obsMu.Lock()
		delete(h.observers, id)
		h.obsMu.Unlock()
	}
}

// Close stops listening for storage changes and drops all observers.
// It is safe to call more than once.
func (h *Holder) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()

		close(h.done)

		// An Initialize in flight finishes subscribing before we look.
		h.transition.Lock()
		unsubscribe := h.unsubscribe
		h.unsubscribe = nil
		h.transition.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		h.wg.Wait()

		h.obsMu.Lock()
		h.observers = make(map[uint64]func(bool))
		h.obsMu.Unlock()
	})
}

// notify is the storage callback. Pending cues coalesce into one refresh.
func (h *Holder) notify() {
	select {
	case h.inbox <- struct{}{}:
	default:
	}
}

func (h *Holder) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case <-h.inbox:
			h.Refresh()
		}
	}
}

func (h *Holder) tokenPresent() bool {
	token, ok, err := h.store.Get(TokenKey)
	if err != nil {
		h.log.Warn().Err(err).Msg("Token storage unavailable, treating session as logged out")
		return false
	}
	return ok && token != ""
}

// set must be called with the transition lock held
func (h *Holder) set(value bool) {
	h.mu.Lock()
	changed := h.authenticated != value
	h.authenticated = value
	h.mu.Unlock()

	if changed {
		h.log.Debug().Bool("authenticated", value).Msg("Session changed")
		h.emit(value)
	}
}

func (h *Holder) emit(value bool) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return
	}

	h.obsMu.Lock()
	fns := make([]func(bool), 0, len(h.observers))
	for _, fn := range h.observers {
		fns = append(fns, fn)
	}
	h.obsMu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
