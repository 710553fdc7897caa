package session

// Attribute dispatch. Each store action consults an explicit lookup table
// keyed by attribute; attributes without a specialized handler fall back to
// the action's default. The table replaces the legacy convention of
// deriving handler method names from the action and capitalized key.

// Attribute keys with specialized handlers.
const (
	AttrName             = "name"
	AttrAvatar           = "avatar"
	AttrSessionID        = "sessionID"
	AttrActiveIdentities = "activeIdentities"
	AttrLogged           = "logged"
	AttrIdentity         = "identity"
	AttrRoles            = KeyRoles
	AttrMarkers          = KeyMarkers
)

type (
	getHandler func(s *Session, key string, def any) any
	setHandler func(s *Session, key string, value any)
	isHandler  func(s *Session, key string) bool
	anyHandler func(s *Session, key string, values []string) bool
)

// dispatchTable maps (action, attribute) to its handler. Handlers run with
// the session mutex held.
type dispatchTable struct {
	get map[string]getHandler
	set map[string]setHandler
	is  map[string]isHandler
	has map[string]anyHandler
	any map[string]anyHandler
}

func newDispatchTable() *dispatchTable {
	return &dispatchTable{
		get: map[string]getHandler{
			AttrName:             getName,
			AttrAvatar:           getAvatar,
			AttrSessionID:        getSessionID,
			AttrActiveIdentities: getActiveIdentities,
		},
		set: map[string]setHandler{},
		is: map[string]isHandler{
			AttrLogged: isLogged,
		},
		has: map[string]anyHandler{},
		any: map[string]anyHandler{
			AttrIdentity: anyIdentity,
			AttrRoles:    anyNamespaceList,
			AttrMarkers:  anyNamespaceList,
		},
	}
}

// Get returns the stored value under key, or def when the value is strictly
// absent. Present falsy values (false, 0, empty collections) are returned
// unchanged.
func (s *Session) Get(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.table.get[key]; ok {
		return h(s, key, def)
	}
	return defaultGet(s, key, def)
}

// Set stores value under key in its default bucket.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.table.set[key]; ok {
		h(s, key, value)
		return
	}
	defaultSet(s, key, value)
}

// Is reports whether the condition named by key holds.
func (s *Session) Is(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.table.is[key]; ok {
		return h(s, key)
	}
	return defaultIs(s, key)
}

// Has reports whether the stored value under key matches value. The default
// delegates to Any with a single-element list, so Has(k, v) == Any(k, [v])
// for every key.
func (s *Session) Has(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.table.has[key]; ok {
		return h(s, key, []string{value})
	}
	return s.anyLocked(key, []string{value})
}

// Any reports whether the stored value under key matches one of values,
// either by string equality or, for stored collections, by membership.
// Before the first resolution Any is always false.
func (s *Session) Any(key string, values []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anyLocked(key, values)
}

func (s *Session) anyLocked(key string, values []string) bool {
	if h, ok := s.table.any[key]; ok {
		return h(s, key, values)
	}
	return defaultAny(s, key, values)
}

// bucketForLocked picks the fallback storage bucket for key: the reserved
// namespace for its own fields, the active identity record otherwise.
func (s *Session) bucketForLocked(key string) map[string]any {
	switch key {
	case KeyState, KeyRoles, KeyMarkers:
		return s.ns
	default:
		return s.active
	}
}

// Default fallbacks.

func defaultGet(s *Session, key string, def any) any {
	v, ok := s.bucketForLocked(key)[key]
	if !ok {
		return def
	}
	return v
}

func defaultSet(s *Session, key string, value any) {
	s.bucketForLocked(key)[key] = value
}

func defaultIs(s *Session, key string) bool {
	v, ok := s.bucketForLocked(key)[key]
	if !ok {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	return asString(v) == "true"
}

func defaultAny(s *Session, key string, values []string) bool {
	if !s.resolvedOnce {
		return false
	}
	v, ok := s.bucketForLocked(key)[key]
	if !ok {
		return false
	}
	if list := asStrings(v); list != nil {
		return containsAny(list, values)
	}
	stored := asString(v)
	for _, want := range values {
		if stored == want {
			return true
		}
	}
	return false
}

// Specialized handlers.

// getName resolves the display name of the active identity: the nickname
// when present, else first and last name joined.
func getName(s *Session, _ string, def any) any {
	if nick := asString(s.active["nickname"]); nick != "" {
		return nick
	}
	first := asString(s.active["firstName"])
	last := asString(s.active["lastName"])
	name := first
	if last != "" {
		if name != "" {
			name += " "
		}
		name += last
	}
	if name == "" {
		return def
	}
	return name
}

func getAvatar(s *Session, _ string, def any) any {
	photo, ok := s.avatarLocked()
	if !ok {
		return def
	}
	return photo
}

func getSessionID(s *Session, _ string, def any) any {
	if s.channelID == "" {
		return def
	}
	return s.channelID
}

func getActiveIdentities(s *Session, _ string, def any) any {
	active := s.activeIdentitiesLocked()
	if active == nil {
		return def
	}
	return active
}

// isLogged holds when an identity is flagged logged-in.
func isLogged(s *Session, _ string) bool {
	return len(s.active) > 0
}

// anyIdentity matches provider names across all identity records, not just
// the active one.
func anyIdentity(s *Session, _ string, values []string) bool {
	if !s.resolvedOnce {
		return false
	}
	for _, id := range s.identities {
		provider := asString(id[keyProvider])
		for _, want := range values {
			if provider == want {
				return true
			}
		}
	}
	return false
}

// anyNamespaceList matches membership in the reserved namespace lists,
// bypassing any raw value a caller may have stored over them.
func anyNamespaceList(s *Session, key string, values []string) bool {
	if !s.resolvedOnce {
		return false
	}
	return containsAny(asStrings(s.ns[key]), values)
}

func containsAny(list, values []string) bool {
	for _, item := range list {
		for _, want := range values {
			if item == want {
				return true
			}
		}
	}
	return false
}
