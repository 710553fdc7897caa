// Package session implements the shared identity session of the widget
// layer: a re-entrant state machine resolving identity data from the
// backend, a normalized store with attribute dispatch, and a cross-context
// invalidation listener.
//
// One Session serves every canvas and widget instance of a page. It is
// created once, threaded through the bootstrap pipeline, and never torn
// down; identity changes only re-resolve it.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/widget_layer/internal/metrics"
	"github.com/R3E-Network/widget_layer/pkg/logger"
	"github.com/R3E-Network/widget_layer/platform/api"
	"github.com/R3E-Network/widget_layer/platform/bus"
	"github.com/R3E-Network/widget_layer/platform/params"
)

// State is the lifecycle state of the session. It cycles
// Uninitialized -> Waiting -> Ready -> Waiting -> Ready and never skips
// Waiting.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateWaiting       State = "waiting"
	StateReady         State = "ready"
)

// Identity endpoints.
const (
	EndpointIdentityGet = "/identity.get"
	EndpointLogout      = "/identity.logout"
)

// Identity is one normalized provider-account record.
type Identity map[string]any

// Data is a snapshot of the normalized session store.
type Data struct {
	State      string     `json:"state"`
	Roles      []string   `json:"roles"`
	Markers    []string   `json:"markers"`
	Identities []Identity `json:"identities"`
}

// Callback receives the session data once a resolution settles. A non-nil
// error means the identity fetch failed; the store then holds its previous
// contents.
type Callback func(Data, error)

// Config configures a Session.
type Config struct {
	// AppKey is the tenant credential carried on every request. Required.
	AppKey string

	// ChannelID is the cross-context channel identifier, doubling as the
	// pseudo session id on identity requests.
	ChannelID string

	// API issues identity requests. Required.
	API api.Requester

	// Bus carries onInit/onInvalidate events and the inbound identity
	// acknowledgment topic. Required.
	Bus *bus.Bus

	Log     logger.Logger
	Metrics *metrics.Collector

	// Context bounds internally triggered requests. Defaults to
	// context.Background; the session lives for the page.
	Context context.Context
}

// Session is the page-wide identity session.
type Session struct {
	mu sync.Mutex

	appKey    string
	channelID string
	apiClient api.Requester
	bus       *bus.Bus
	log       logger.Logger
	metrics   *metrics.Collector
	ctx       context.Context

	state        State
	pending      []Callback
	resolvedOnce bool

	// Normalized store.
	raw        string
	ns         params.Config
	identities []Identity
	active     Identity

	// Derived values, invalidated on every store reset.
	cache struct {
		activeIdentities []Identity
		activeValid      bool
		avatar           any
		avatarValid      bool
	}

	// Cross-context wiring.
	ackSub      bus.Subscription
	awaitingAck bool

	table *dispatchTable
}

// New creates a Session. It subscribes the invalidation listener exactly
// once; use Shared when the process should hold a single instance.
func New(cfg Config) (*Session, error) {
	if cfg.AppKey == "" {
		return nil, fmt.Errorf("app key is required")
	}
	if cfg.API == nil {
		return nil, fmt.Errorf("api requester is required")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	s := &Session{
		appKey:    cfg.AppKey,
		channelID: cfg.ChannelID,
		apiClient: cfg.API,
		bus:       cfg.Bus,
		log:       cfg.Log,
		metrics:   cfg.Metrics,
		ctx:       cfg.Context,
		state:     StateUninitialized,
	}
	s.resetStoreLocked()
	s.table = newDispatchTable()
	s.subscribeInvalidation()
	return s, nil
}

var (
	sharedMu sync.Mutex
	shared   *Session
)

// Shared returns the process-wide session, creating it on first call. Later
// calls return the same instance regardless of cfg.
func Shared(cfg Config) (*Session, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	shared = s
	return shared, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChannelID returns the cross-context channel id of this session.
func (s *Session) ChannelID() string {
	return s.channelID
}

// Resolve resolves the session. It is idempotent and re-entrant:
//
//   - Waiting: onReady is queued behind the in-flight resolution; no second
//     request is issued.
//   - Ready: onReady fires immediately with the current data.
//   - Uninitialized: the session transitions to Waiting, fetches identity
//     data, normalizes it, transitions to Ready, publishes onInit, then
//     fires queued callbacks in subscription order followed by onReady.
func (s *Session) Resolve(onReady Callback) {
	s.mu.Lock()
	switch s.state {
	case StateWaiting:
		if onReady != nil {
			s.pending = append(s.pending, onReady)
		}
		s.mu.Unlock()
		return
	case StateReady:
		d := s.snapshotLocked()
		s.mu.Unlock()
		if onReady != nil {
			onReady(d, nil)
		}
		return
	}
	s.state = StateWaiting
	s.mu.Unlock()

	go s.fetch(onReady)
}

// refresh forces a re-resolution even when the session is Ready. A refresh
// issued while a resolution is in flight queues behind it.
func (s *Session) refresh(onDone Callback) {
	s.mu.Lock()
	if s.state == StateWaiting {
		if onDone != nil {
			s.pending = append(s.pending, onDone)
		}
		s.mu.Unlock()
		return
	}
	s.state = StateWaiting
	s.mu.Unlock()

	go s.fetch(onDone)
}

// fetch performs the single in-flight identity request and settles the
// resolution. initiator fires after every queued callback.
func (s *Session) fetch(initiator Callback) {
	doc, err := s.apiClient.Do(s.ctx, EndpointIdentityGet, api.Params{
		"appkey":    s.appKey,
		"sessionID": s.channelID,
	})

	s.mu.Lock()
	if err == nil {
		// A "session not found" code is a valid empty session, not an error.
		if api.ErrorCode(doc) == api.CodeSessionNotFound {
			doc = gjson.Result{}
		}
		s.applyLocked(doc)
	}
	s.state = StateReady
	s.resolvedOnce = true
	pending := s.pending
	s.pending = nil
	d := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.log.Error("session: identity fetch failed", "error", err)
		if s.metrics != nil {
			s.metrics.SessionResolution("error")
		}
	} else {
		if s.metrics != nil {
			s.metrics.SessionResolution("ok")
		}
		s.bus.Publish(bus.TopicSessionInit, s.channelID, d)
	}

	for _, cb := range pending {
		cb(d, err)
	}
	if initiator != nil {
		initiator(d, err)
	}
}

// Logout logs the active identity out. Without an active identity the store
// resets synchronously and done fires in the same turn, with zero network
// requests. Otherwise a logout request is issued, the session re-resolves,
// and a one-shot listener is armed for the cross-context acknowledgment;
// done fires once the re-resolution settles.
func (s *Session) Logout(done func()) {
	s.mu.Lock()
	if len(s.active) == 0 {
		s.resetStoreLocked()
		s.mu.Unlock()
		if done != nil {
			done()
		}
		return
	}
	s.awaitingAck = true
	s.mu.Unlock()

	go func() {
		if _, err := s.apiClient.Do(s.ctx, EndpointLogout, api.Params{"sessionID": s.channelID}); err != nil {
			s.log.Error("session: logout request failed", "error", err)
		}

		s.armLogoutAck()
		s.refresh(func(Data, error) {
			if done != nil {
				done()
			}
		})
	}()
}

// armLogoutAck installs a one-shot subscription marking the logout as
// externally settled once the acknowledgment frame arrives.
func (s *Session) armLogoutAck() {
	var once sync.Once
	var sub bus.Subscription
	sub = s.bus.Subscribe(bus.TopicIdentityAck, func(bus.Event) {
		once.Do(func() {
			s.mu.Lock()
			s.awaitingAck = false
			s.mu.Unlock()
			s.log.Debug("session: logout acknowledged")
			sub.Unsubscribe()
		})
	})
}

// LogoutSettled reports whether no logout is awaiting its cross-context
// acknowledgment.
func (s *Session) LogoutSettled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.awaitingAck
}

// applyLocked normalizes a server document into the store.
func (s *Session) applyLocked(doc gjson.Result) {
	ns, identities := normalize(doc)
	s.raw = doc.Raw
	s.ns = ns
	s.identities = identities
	s.active = activeIdentity(identities)
	s.cache.activeValid = false
	s.cache.avatarValid = false
}

// resetStoreLocked empties the store back to its normalized defaults.
func (s *Session) resetStoreLocked() {
	s.raw = ""
	s.ns = defaultNamespace()
	s.identities = nil
	s.active = Identity{}
	s.cache.activeValid = false
	s.cache.avatarValid = false
}

func (s *Session) snapshotLocked() Data {
	d := Data{
		State:      asString(s.ns[KeyState]),
		Roles:      append([]string(nil), asStrings(s.ns[KeyRoles])...),
		Markers:    append([]string(nil), asStrings(s.ns[KeyMarkers])...),
		Identities: make([]Identity, len(s.identities)),
	}
	copy(d.Identities, s.identities)
	if d.Roles == nil {
		d.Roles = []string{}
	}
	if d.Markers == nil {
		d.Markers = []string{}
	}
	return d
}

// activeIdentities returns the logged-in identity records. The result is
// cached until the next store reset.
func (s *Session) activeIdentitiesLocked() []Identity {
	if s.cache.activeValid {
		return s.cache.activeIdentities
	}
	var out []Identity
	for _, id := range s.identities {
		if asString(id[keyLoggedIn]) == "true" {
			out = append(out, id)
		}
	}
	s.cache.activeIdentities = out
	s.cache.activeValid = true
	return out
}

// avatarLocked returns the first photo record of type "avatar" on the
// active identity, cached until the next store reset.
func (s *Session) avatarLocked() (any, bool) {
	if s.cache.avatarValid {
		return s.cache.avatar, s.cache.avatar != nil
	}
	s.cache.avatarValid = true
	s.cache.avatar = nil

	photos, ok := s.active[keyPhotos].([]any)
	if !ok {
		return nil, false
	}
	for _, p := range photos {
		photo, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if asString(photo["type"]) == "avatar" {
			s.cache.avatar = photo
			return photo, true
		}
	}
	return nil, false
}
