package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/dispatch"
	"github.com/forgebot/forgebot/internal/log"
	"github.com/forgebot/forgebot/internal/plugin"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	os.Exit(m.Run())
}

// fakeDispatcher records the last call and returns a canned summary.
type fakeDispatcher struct {
	calls      int
	eventName  string
	deliveryID string
	payload    []byte
	summary    *dispatch.Summary
	err        error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, eventName, deliveryID string, payload []byte) (*dispatch.Summary, error) {
	f.calls++
	f.eventName = eventName
	f.deliveryID = deliveryID
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func testSummary() *dispatch.Summary {
	return &dispatch.Summary{
		Outputs: map[string]string{
			"event_name":      "issues",
			"event_guid":      "guid-1234",
			"repository":      "org/repo",
			"plugins_enabled": "welcome",
		},
		Category: plugin.CategoryIssue,
		Results: map[string]plugin.HandlerResult{
			"welcome": {Success: true, TookAction: true},
		},
	}
}

func newTestServer(fd *fakeDispatcher) *Server {
	return New(config.WebhookConfig{
		Listen: "127.0.0.1:0",
		Secret: "s3cret",
	}, fd, nil, nil)
}

func postDelivery(t *testing.T, srv *Server, body []byte, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, config.DefaultWebhookPath, strings.NewReader(string(body)))
	req.Header.Set("X-GitHub-Event", "issues")
	req.Header.Set("X-GitHub-Delivery", "guid-1234")
	req.Header.Set(config.DefaultSignatureHeader, "sha256="+signBody(body, "s3cret"))
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestDeliveryAccepted(t *testing.T) {
	fd := &fakeDispatcher{summary: testSummary()}
	srv := newTestServer(fd)

	body := []byte(`{"action":"opened","issue":{"number":7}}`)
	rec := postDelivery(t, srv, body, nil)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if fd.calls != 1 {
		t.Fatalf("dispatcher called %d times, want 1", fd.calls)
	}
	if fd.eventName != "issues" || fd.deliveryID != "guid-1234" {
		t.Errorf("dispatched %q/%q, want issues/guid-1234", fd.eventName, fd.deliveryID)
	}
	if string(fd.payload) != string(body) {
		t.Error("payload not forwarded verbatim")
	}

	var resp AcceptedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.DeliveryID != "guid-1234" {
		t.Errorf("DeliveryID = %q, want guid-1234", resp.DeliveryID)
	}
	if resp.Category != "issue" || resp.Handlers != 1 {
		t.Errorf("Category/Handlers = %q/%d, want issue/1", resp.Category, resp.Handlers)
	}
}

func TestDeliveryRejectsBadSignatures(t *testing.T) {
	body := []byte(`{"action":"opened"}`)

	tests := []struct {
		name   string
		mutate func(*http.Request)
	}{
		{"missing signature", func(r *http.Request) { r.Header.Del(config.DefaultSignatureHeader) }},
		{"malformed signature", func(r *http.Request) { r.Header.Set(config.DefaultSignatureHeader, "sha256=zzzz") }},
		{"wrong secret", func(r *http.Request) {
			r.Header.Set(config.DefaultSignatureHeader, "sha256="+signBody(body, "wrong"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := &fakeDispatcher{summary: testSummary()}
			srv := newTestServer(fd)

			rec := postDelivery(t, srv, body, tt.mutate)
			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
			}
			if fd.calls != 0 {
				t.Error("dispatcher must not run for unverified deliveries")
			}
		})
	}
}

func TestDeliveryRejectsOversizedBody(t *testing.T) {
	fd := &fakeDispatcher{summary: testSummary()}
	srv := New(config.WebhookConfig{
		Listen:      "127.0.0.1:0",
		Secret:      "s3cret",
		MaxBodySize: 64,
	}, fd, nil, nil)

	body := []byte(`{"pad":"` + strings.Repeat("x", 128) + `"}`)
	rec := postDelivery(t, srv, body, nil)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if fd.calls != 0 {
		t.Error("dispatcher must not run for oversized deliveries")
	}
}

func TestDeliveryRequiresEventHeader(t *testing.T) {
	fd := &fakeDispatcher{summary: testSummary()}
	srv := newTestServer(fd)

	rec := postDelivery(t, srv, []byte(`{}`), func(r *http.Request) {
		r.Header.Del("X-GitHub-Event")
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if fd.calls != 0 {
		t.Error("dispatcher must not run without an event name")
	}
}

func TestDeliveryDispatchErrorIsBadRequest(t *testing.T) {
	fd := &fakeDispatcher{err: context.DeadlineExceeded}
	srv := newTestServer(fd)

	rec := postDelivery(t, srv, []byte(`null`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == "" {
		t.Error("error response should carry a message")
	}
}

func TestEventsEndpointWithoutHub(t *testing.T) {
	srv := newTestServer(&fakeDispatcher{summary: testSummary()})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want empty array", rec.Body.String())
	}
}

func TestDeliveriesEndpointWithoutStore(t *testing.T) {
	srv := newTestServer(&fakeDispatcher{summary: testSummary()})

	req := httptest.NewRequest(http.MethodGet, "/deliveries?limit=5", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want empty array", rec.Body.String())
	}
}
