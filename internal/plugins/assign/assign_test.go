package assign

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/event"
	"github.com/forgebot/forgebot/internal/plugin"
)

type assigneeCalls struct {
	added   []string
	removed []string
}

func newFakeGitHub(t *testing.T) (*github.Client, *assigneeCalls) {
	t.Helper()

	calls := &assigneeCalls{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Assignees []string `json:"assignees"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode assignees: %v", err)
		}
		switch r.Method {
		case http.MethodPost:
			calls.added = append(calls.added, req.Assignees...)
		case http.MethodDelete:
			calls.removed = append(calls.removed, req.Assignees...)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"number":5}`))
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	client.BaseURL, _ = url.Parse(srv.URL + "/")
	return client, calls
}

func comment(body, user string) *event.GenericCommentEvent {
	return &event.GenericCommentEvent{
		Action: "created",
		Body:   body,
		User:   user,
		Number: 5,
	}
}

func TestBareAssignTargetsCommenter(t *testing.T) {
	client, calls := newFakeGitHub(t)
	p := New(client)

	agent := plugin.NewAgent()
	res, err := p.Handlers.GenericComment(context.Background(), comment("/assign", "alice"), event.Context{Repository: "org/repo"}, agent)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !res.TookAction {
		t.Errorf("result = %+v, want action taken", res)
	}
	if !reflect.DeepEqual(calls.added, []string{"alice"}) {
		t.Errorf("added = %v, want [alice]", calls.added)
	}
	if agent.Outputs()["assigned"] != "alice" {
		t.Errorf("outputs = %v", agent.Outputs())
	}
}

func TestAssignExplicitUsers(t *testing.T) {
	client, calls := newFakeGitHub(t)
	p := New(client)

	res, err := p.Handlers.GenericComment(context.Background(), comment("/assign @bob carol", "alice"), event.Context{Repository: "org/repo"}, plugin.NewAgent())
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !res.TookAction {
		t.Errorf("result = %+v, want action taken", res)
	}
	if !reflect.DeepEqual(calls.added, []string{"bob", "carol"}) {
		t.Errorf("added = %v, want [bob carol]", calls.added)
	}
}

func TestUnassign(t *testing.T) {
	client, calls := newFakeGitHub(t)
	p := New(client)

	res, err := p.Handlers.GenericComment(context.Background(), comment("/unassign @bob", "alice"), event.Context{Repository: "org/repo"}, plugin.NewAgent())
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !res.TookAction {
		t.Errorf("result = %+v, want action taken", res)
	}
	if !reflect.DeepEqual(calls.removed, []string{"bob"}) {
		t.Errorf("removed = %v, want [bob]", calls.removed)
	}
}

func TestIgnoresNonCommands(t *testing.T) {
	client, calls := newFakeGitHub(t)
	p := New(client)

	res, err := p.Handlers.GenericComment(context.Background(), comment("please could someone assign this", "alice"), event.Context{Repository: "org/repo"}, plugin.NewAgent())
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if res.TookAction || len(calls.added)+len(calls.removed) != 0 {
		t.Error("plain comments must not change assignees")
	}
}
