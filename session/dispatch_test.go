package session

import (
	"testing"
)

func readySession(t *testing.T, payload string) *Session {
	t.Helper()
	s, _ := newTestSession(t, &fakeRequester{response: payload})
	resolveAndWait(t, s)
	return s
}

func TestGet_DefaultOnlyWhenStrictlyAbsent(t *testing.T) {
	s := readySession(t, loggedInPayload)

	if got := s.Get("missing", "fallback"); got != "fallback" {
		t.Errorf("Get(missing) = %v, want fallback", got)
	}

	// Falsy values are present values and come back unchanged.
	falsy := []struct {
		key   string
		value any
	}{
		{"flag", false},
		{"count", 0},
		{"items", []string{}},
	}
	for _, tc := range falsy {
		s.Set(tc.key, tc.value)
		got := s.Get(tc.key, "fallback")
		switch want := tc.value.(type) {
		case []string:
			list, ok := got.([]string)
			if !ok || len(list) != 0 {
				t.Errorf("Get(%s) = %v, want empty list", tc.key, got)
			}
		default:
			if got != want {
				t.Errorf("Get(%s) = %v, want %v", tc.key, got, want)
			}
		}
	}
}

func TestSet_RoutesToNamespaceBucket(t *testing.T) {
	s := readySession(t, `{}`)

	s.Set(KeyState, "Connected")
	if got := s.Get(KeyState, nil); got != "Connected" {
		t.Errorf("Get(state) = %v, want Connected", got)
	}

	// Non-namespace keys land on the active identity record.
	s.Set("color", "red")
	if got := s.Get("color", nil); got != "red" {
		t.Errorf("Get(color) = %v, want red", got)
	}
}

func TestHas_EqualsAnyWithSingleValue(t *testing.T) {
	s := readySession(t, loggedInPayload)

	keys := []struct {
		key   string
		value string
	}{
		{AttrRoles, "admin"},
		{AttrRoles, "nobody"},
		{AttrMarkers, "beta"},
		{AttrIdentity, "github"},
		{AttrIdentity, "twitter"},
		{"provider", "github"},
	}
	for _, tc := range keys {
		if got, want := s.Has(tc.key, tc.value), s.Any(tc.key, []string{tc.value}); got != want {
			t.Errorf("Has(%s, %s) = %v, Any = %v; must agree", tc.key, tc.value, got, want)
		}
	}
}

func TestAny_FalseBeforeResolution(t *testing.T) {
	s, _ := newTestSession(t, &fakeRequester{response: loggedInPayload})

	if s.Any(AttrRoles, []string{"admin"}) {
		t.Error("Any before resolution must be false")
	}
	if s.Has("provider", "github") {
		t.Error("Has before resolution must be false")
	}
}

func TestAny_MatchesScalarAndCollection(t *testing.T) {
	s := readySession(t, loggedInPayload)

	// Collection membership on the namespace lists.
	if !s.Any(AttrRoles, []string{"nobody", "admin"}) {
		t.Error("Any(roles) should match membership")
	}
	if s.Any(AttrMarkers, []string{"gamma"}) {
		t.Error("Any(markers) should not match absent value")
	}

	// Scalar equality on identity fields.
	if !s.Any("provider", []string{"github"}) {
		t.Error("Any(provider) should match the active identity scalar")
	}
}

func TestDispatch_SpecializedHandlers(t *testing.T) {
	s := readySession(t, loggedInPayload)

	if got := s.Get(AttrName, nil); got != "octo" {
		t.Errorf("Get(name) = %v, want octo", got)
	}
	if got := s.Get(AttrSessionID, nil); got != "chan-1" {
		t.Errorf("Get(sessionID) = %v, want chan-1", got)
	}
	if !s.Is(AttrLogged) {
		t.Error("Is(logged) should hold")
	}
	if !s.Has(AttrIdentity, "github") {
		t.Error("Has(identity, github) should hold")
	}
	if s.Has(AttrIdentity, "twitter") {
		t.Error("Has(identity, twitter) should not hold")
	}

	avatar, ok := s.Get(AttrAvatar, nil).(map[string]any)
	if !ok {
		t.Fatalf("Get(avatar) = %T, want photo record", s.Get(AttrAvatar, nil))
	}
	if avatar["url"] != "a.png" {
		t.Errorf("avatar url = %v, want a.png", avatar["url"])
	}

	active, ok := s.Get(AttrActiveIdentities, nil).([]Identity)
	if !ok || len(active) != 1 {
		t.Fatalf("Get(activeIdentities) = %v, want one record", s.Get(AttrActiveIdentities, nil))
	}
	if active[0]["provider"] != "github" {
		t.Errorf("active identity provider = %v, want github", active[0]["provider"])
	}
}

func TestDispatch_NameFallsBackToFullName(t *testing.T) {
	s := readySession(t, `{"identities": [
		{"provider": "site", "loggedIn": "true", "firstName": "Ada", "lastName": "Lovelace"}
	]}`)

	if got := s.Get(AttrName, nil); got != "Ada Lovelace" {
		t.Errorf("Get(name) = %v, want full name", got)
	}
}

func TestDispatch_DefaultsWithoutActiveIdentity(t *testing.T) {
	s := readySession(t, `{}`)

	if s.Is(AttrLogged) {
		t.Error("Is(logged) should not hold without an active identity")
	}
	if got := s.Get(AttrName, "anonymous"); got != "anonymous" {
		t.Errorf("Get(name) = %v, want default", got)
	}
	if got := s.Get(AttrAvatar, nil); got != nil {
		t.Errorf("Get(avatar) = %v, want nil default", got)
	}
}
