package canvas

import (
	"testing"
)

func TestScriptRef_Resolve(t *testing.T) {
	cases := []struct {
		name  string
		ref   ScriptRef
		debug bool
		want  string
	}{
		{"single url", ScriptRef{URL: "u"}, false, "u"},
		{"single url ignores debug", ScriptRef{URL: "u"}, true, "u"},
		{"pair prod", ScriptRef{Dev: "d", Prod: "p"}, false, "p"},
		{"pair dev", ScriptRef{Dev: "d", Prod: "p"}, true, "d"},
		{"dev alone is not a pair", ScriptRef{Dev: "d"}, true, ""},
		{"prod alone is not a pair", ScriptRef{Prod: "p"}, false, ""},
		{"empty", ScriptRef{}, false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ref.Resolve(tc.debug); got != tc.want {
				t.Errorf("Resolve(%v) = %q, want %q", tc.debug, got, tc.want)
			}
		})
	}
}

func TestDescriptor_EffectiveID(t *testing.T) {
	cases := []struct {
		name   string
		desc   Descriptor
		index  int
		manual bool
		want   string
	}{
		{"explicit id wins", Descriptor{ID: "chat"}, 3, false, "chat"},
		{"explicit id wins when manual", Descriptor{ID: "chat"}, 3, true, "chat"},
		{"positional fallback", Descriptor{}, 3, false, "3"},
		{"manual forbids positional", Descriptor{}, 3, true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.desc.EffectiveID(tc.index, tc.manual); got != tc.want {
				t.Errorf("EffectiveID(%d, %v) = %q, want %q", tc.index, tc.manual, got, tc.want)
			}
		})
	}
}

func TestParseDocument_JSON(t *testing.T) {
	data := []byte(`{
		"apps": [
			{"component": "widget.feed", "script": "https://cdn.test/feed.js",
			 "config": {"theme": "dark"}},
			{"component": "widget.chat", "id": "chat", "caption": "Chat",
			 "script": {"dev": "https://cdn.test/chat.dev.js", "prod": "https://cdn.test/chat.js"}}
		]
	}`)

	doc, err := ParseDocument(data, "canvas.json")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if len(doc.Apps) != 2 {
		t.Fatalf("apps = %d, want 2", len(doc.Apps))
	}

	feed := doc.Apps[0]
	if feed.Script.URL != "https://cdn.test/feed.js" {
		t.Errorf("bare-string script = %q", feed.Script.URL)
	}
	if got := feed.Config.Get("theme", nil); got != "dark" {
		t.Errorf("config theme = %v, want dark", got)
	}

	chat := doc.Apps[1]
	if chat.ID != "chat" || chat.Caption != "Chat" {
		t.Errorf("chat descriptor = %+v", chat)
	}
	if chat.Script.Dev == "" || chat.Script.Prod == "" {
		t.Errorf("object-form script = %+v", chat.Script)
	}
}

func TestParseDocument_YAML(t *testing.T) {
	data := []byte(`
apps:
  - component: widget.feed
    script: https://cdn.test/feed.js
  - component: widget.chat
    script:
      dev: https://cdn.test/chat.dev.js
      prod: https://cdn.test/chat.js
`)

	doc, err := ParseDocument(data, "canvas.yaml")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if len(doc.Apps) != 2 {
		t.Fatalf("apps = %d, want 2", len(doc.Apps))
	}
	if doc.Apps[0].Script.URL != "https://cdn.test/feed.js" {
		t.Errorf("scalar script = %q", doc.Apps[0].Script.URL)
	}
	if doc.Apps[1].Script.Resolve(false) != "https://cdn.test/chat.js" {
		t.Errorf("mapping script = %+v", doc.Apps[1].Script)
	}
}

func TestParseDocument_SuffixFallback(t *testing.T) {
	yamlData := []byte("apps:\n  - component: widget.feed\n    script: u\n")

	doc, err := ParseDocument(yamlData, "canvas.conf")
	if err != nil {
		t.Fatalf("ParseDocument() fallback error = %v", err)
	}
	if len(doc.Apps) != 1 || doc.Apps[0].Component != "widget.feed" {
		t.Errorf("fallback parse = %+v", doc)
	}

	if _, err := ParseDocument([]byte("{not valid at all"), "canvas.conf"); err == nil {
		t.Error("unparseable input should fail")
	}
}

func TestScriptRef_MarshalRoundTrip(t *testing.T) {
	single := ScriptRef{URL: "u"}
	data, err := single.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(data) != `"u"` {
		t.Errorf("single-url form = %s, want bare string", data)
	}

	pair := ScriptRef{Dev: "d", Prod: "p"}
	data, err = pair.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	var back ScriptRef
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	if back != pair {
		t.Errorf("round trip = %+v, want %+v", back, pair)
	}
}
