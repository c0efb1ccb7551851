package label

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/event"
	"github.com/forgebot/forgebot/internal/plugin"
)

type labelCalls struct {
	added   []string
	removed []string
}

func newFakeGitHub(t *testing.T) (*github.Client, *labelCalls) {
	t.Helper()

	calls := &labelCalls{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var names []string
			if err := json.NewDecoder(r.Body).Decode(&names); err != nil {
				t.Errorf("decode labels: %v", err)
			}
			calls.added = append(calls.added, names...)
			w.Write([]byte(`[]`))
		case http.MethodDelete:
			idx := strings.Index(r.URL.Path, "/labels/")
			calls.removed = append(calls.removed, r.URL.Path[idx+len("/labels/"):])
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	client.BaseURL, _ = url.Parse(srv.URL + "/")
	return client, calls
}

func comment(body string) *event.GenericCommentEvent {
	return &event.GenericCommentEvent{
		Action: "created",
		Body:   body,
		User:   "alice",
		Number: 5,
	}
}

func TestKindCommandAddsLabel(t *testing.T) {
	client, calls := newFakeGitHub(t)
	p := New(client)

	agent := plugin.NewAgent()
	res, err := p.Handlers.GenericComment(context.Background(), comment("/kind bug"), event.Context{Repository: "org/repo"}, agent)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !res.TookAction {
		t.Errorf("result = %+v, want action taken", res)
	}
	if len(calls.added) != 1 || calls.added[0] != "kind/bug" {
		t.Errorf("added = %v, want [kind/bug]", calls.added)
	}
	if agent.Outputs()["labels_added"] != "kind/bug" {
		t.Errorf("outputs = %v", agent.Outputs())
	}
}

func TestRemoveKindCommandRemovesLabel(t *testing.T) {
	client, calls := newFakeGitHub(t)
	p := New(client)

	res, err := p.Handlers.GenericComment(context.Background(), comment("/remove-kind cleanup"), event.Context{Repository: "org/repo"}, plugin.NewAgent())
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !res.TookAction {
		t.Errorf("result = %+v, want action taken", res)
	}
	if len(calls.removed) != 1 || !strings.Contains(calls.removed[0], "cleanup") {
		t.Errorf("removed = %v, want one kind/cleanup removal", calls.removed)
	}
}

func TestMultipleCommandsInOneComment(t *testing.T) {
	client, calls := newFakeGitHub(t)
	p := New(client)

	body := "some context\n/kind bug\n/kind docs\n/remove-kind cleanup"
	res, err := p.Handlers.GenericComment(context.Background(), comment(body), event.Context{Repository: "org/repo"}, plugin.NewAgent())
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !res.TookAction {
		t.Errorf("result = %+v, want action taken", res)
	}
	if len(calls.added) != 2 || len(calls.removed) != 1 {
		t.Errorf("added %v removed %v, want 2 adds and 1 removal", calls.added, calls.removed)
	}
}

func TestIgnoresNonCommands(t *testing.T) {
	client, calls := newFakeGitHub(t)
	p := New(client)

	tests := []struct {
		name string
		ev   *event.GenericCommentEvent
	}{
		{"plain comment", comment("looks like a bug to me")},
		{"inline mention", comment("try /kind bug maybe? no wait")},
		{"edited comment", &event.GenericCommentEvent{Action: "edited", Body: "/kind bug", Number: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Handlers.GenericComment(context.Background(), tt.ev, event.Context{Repository: "org/repo"}, plugin.NewAgent())
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if res.TookAction {
				t.Errorf("result = %+v, want no action", res)
			}
		})
	}
	if len(calls.added)+len(calls.removed) != 0 {
		t.Errorf("API calls made for non-commands: %+v", calls)
	}
}
