package session

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/widget_layer/platform/params"
)

// Reserved namespace layout. Every normalized store carries this bucket,
// with defaults even for empty or absent server payloads.
const (
	NamespaceKey = "meta"

	KeyState   = "state"
	KeyRoles   = "roles"
	KeyMarkers = "markers"

	// StateUntouched is the namespace state of a session the backend has
	// never touched.
	StateUntouched = "Untouched"
)

// Identity record fields this layer depends on.
const (
	keyLoggedIn = "loggedIn"
	keyProvider = "provider"
	keyPhotos   = "photos"
)

// defaultNamespace returns the reserved bucket in its empty shape.
func defaultNamespace() params.Config {
	return params.Config{
		KeyState:   StateUntouched,
		KeyRoles:   []string{},
		KeyMarkers: []string{},
	}
}

// normalize converts an opaque server identity document into the fixed
// store shape: the reserved namespace and the ordered identity list. Absent
// or empty documents normalize to defaults.
func normalize(doc gjson.Result) (params.Config, []Identity) {
	ns := defaultNamespace()
	if !doc.Exists() || doc.Raw == "" {
		return ns, nil
	}

	meta := doc.Get(NamespaceKey)
	if state := meta.Get(KeyState).String(); state != "" {
		ns[KeyState] = state
	}
	ns[KeyRoles] = stringList(meta.Get(KeyRoles))
	ns[KeyMarkers] = stringList(meta.Get(KeyMarkers))

	var identities []Identity
	for _, entry := range doc.Get("identities").Array() {
		record, ok := entry.Value().(map[string]any)
		if !ok {
			continue
		}
		identities = append(identities, Identity(record))
	}
	return ns, identities
}

// activeIdentity returns the first identity flagged logged-in, or an empty
// record when none is.
func activeIdentity(identities []Identity) Identity {
	for _, id := range identities {
		if asString(id[keyLoggedIn]) == "true" {
			return id
		}
	}
	return Identity{}
}

func stringList(v gjson.Result) []string {
	out := []string{}
	for _, item := range v.Array() {
		out = append(out, item.String())
	}
	return out
}

// asString renders a stored value for the string-equality comparisons the
// store operates on. Nil renders empty.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// asStrings coerces a stored collection into strings. Non-collections yield
// nil.
func asStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, asString(item))
		}
		return out
	default:
		return nil
	}
}
