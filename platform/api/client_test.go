package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func TestDo_PostsFormEncodedParams(t *testing.T) {
	var gotPath, gotContentType, gotAppKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotAppKey = r.PostFormValue("appkey")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	doc, err := c.Do(context.Background(), "/identity.get", Params{"appkey": "key-1"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if gotPath != "/identity.get" {
		t.Errorf("path = %q", gotPath)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotAppKey != "key-1" {
		t.Errorf("appkey = %q", gotAppKey)
	}
	if !doc.Get("ok").Bool() {
		t.Errorf("document = %s", doc.Raw)
	}
}

func TestDo_TrimsTrailingSlashFromBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"})
	if _, err := c.Do(context.Background(), "/x", nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if gotPath != "/x" {
		t.Errorf("path = %q, want /x", gotPath)
	}
}

func TestDo_FailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Do(context.Background(), "/x", nil); err == nil {
		t.Error("Do() should fail on a 5xx status")
	}
}

func TestDo_FailsOnInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Do(context.Background(), "/x", nil); err == nil {
		t.Error("Do() should fail on non-JSON bodies")
	}
}

func TestDo_DocumentErrorCodesAreNotTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errorCode": "session_not_found"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	doc, err := c.Do(context.Background(), "/identity.get", nil)
	if err != nil {
		t.Fatalf("Do() error = %v, in-document codes are the caller's business", err)
	}
	if got := ErrorCode(doc); got != CodeSessionNotFound {
		t.Errorf("ErrorCode() = %q, want %q", got, CodeSessionNotFound)
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		doc  string
		want string
	}{
		{`{"errorCode": "wrong_query"}`, CodeWrongQuery},
		{`{"errorCode": "incorrect_appkey"}`, CodeIncorrectAppKey},
		{`{"data": 1}`, ""},
		{`{}`, ""},
	}
	for _, tc := range cases {
		if got := ErrorCode(gjson.Parse(tc.doc)); got != tc.want {
			t.Errorf("ErrorCode(%s) = %q, want %q", tc.doc, got, tc.want)
		}
	}
}
