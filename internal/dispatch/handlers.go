package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/event"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/log"
	"github.com/forgebot/forgebot/internal/plugin"
)

// Handlers is the fan-out engine: it executes every matching plugin
// handler for one event concurrently and always produces a complete
// per-plugin result map, however many individual handlers failed.
type Handlers struct {
	registry *plugin.Registry
	hub      *events.Hub
	logger   *slog.Logger
}

// NewHandlers creates a fan-out engine over a registry. hub may be nil.
func NewHandlers(registry *plugin.Registry, hub *events.Hub) *Handlers {
	return &Handlers{
		registry: registry,
		hub:      hub,
		logger:   log.WithComponent("dispatch"),
	}
}

// handlerCall pairs a plugin name with an invocation closure so the six
// typed entry points share one execution path.
type handlerCall struct {
	name   string
	invoke func(ctx context.Context, agent *plugin.Agent) (plugin.HandlerResult, error)
}

type settled struct {
	name   string
	result plugin.HandlerResult
}

// HandleIssue runs all enabled issue handlers for the event.
func (h *Handlers) HandleIssue(ctx context.Context, ev *github.IssuesEvent, ec event.Context) map[string]plugin.HandlerResult {
	entries := h.registry.IssueHandlers()
	calls := make([]handlerCall, 0, len(entries))
	for _, e := range entries {
		handler := e.Handler
		calls = append(calls, handlerCall{
			name: e.Plugin.Name,
			invoke: func(ctx context.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
				return handler(ctx, ev, ec, agent)
			},
		})
	}
	return h.run(ctx, plugin.CategoryIssue, ec, calls)
}

// HandleIssueComment runs all enabled issue-comment handlers for the event.
func (h *Handlers) HandleIssueComment(ctx context.Context, ev *github.IssueCommentEvent, ec event.Context) map[string]plugin.HandlerResult {
	entries := h.registry.IssueCommentHandlers()
	calls := make([]handlerCall, 0, len(entries))
	for _, e := range entries {
		handler := e.Handler
		calls = append(calls, handlerCall{
			name: e.Plugin.Name,
			invoke: func(ctx context.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
				return handler(ctx, ev, ec, agent)
			},
		})
	}
	return h.run(ctx, plugin.CategoryIssueComment, ec, calls)
}

// HandlePullRequest runs all enabled pull-request handlers for the event.
func (h *Handlers) HandlePullRequest(ctx context.Context, ev *github.PullRequestEvent, ec event.Context) map[string]plugin.HandlerResult {
	entries := h.registry.PullRequestHandlers()
	calls := make([]handlerCall, 0, len(entries))
	for _, e := range entries {
		handler := e.Handler
		calls = append(calls, handlerCall{
			name: e.Plugin.Name,
			invoke: func(ctx context.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
				return handler(ctx, ev, ec, agent)
			},
		})
	}
	return h.run(ctx, plugin.CategoryPullRequest, ec, calls)
}

// HandlePush runs all enabled push handlers for the event.
func (h *Handlers) HandlePush(ctx context.Context, ev *github.PushEvent, ec event.Context) map[string]plugin.HandlerResult {
	entries := h.registry.PushHandlers()
	calls := make([]handlerCall, 0, len(entries))
	for _, e := range entries {
		handler := e.Handler
		calls = append(calls, handlerCall{
			name: e.Plugin.Name,
			invoke: func(ctx context.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
				return handler(ctx, ev, ec, agent)
			},
		})
	}
	return h.run(ctx, plugin.CategoryPush, ec, calls)
}

// HandleReview runs all enabled review handlers for the event.
func (h *Handlers) HandleReview(ctx context.Context, ev *github.PullRequestReviewEvent, ec event.Context) map[string]plugin.HandlerResult {
	entries := h.registry.ReviewHandlers()
	calls := make([]handlerCall, 0, len(entries))
	for _, e := range entries {
		handler := e.Handler
		calls = append(calls, handlerCall{
			name: e.Plugin.Name,
			invoke: func(ctx context.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
				return handler(ctx, ev, ec, agent)
			},
		})
	}
	return h.run(ctx, plugin.CategoryReview, ec, calls)
}

// HandleGenericComment runs all enabled generic-comment handlers for the event.
func (h *Handlers) HandleGenericComment(ctx context.Context, ev *event.GenericCommentEvent, ec event.Context) map[string]plugin.HandlerResult {
	entries := h.registry.GenericCommentHandlers()
	calls := make([]handlerCall, 0, len(entries))
	for _, e := range entries {
		handler := e.Handler
		calls = append(calls, handlerCall{
			name: e.Plugin.Name,
			invoke: func(ctx context.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
				return handler(ctx, ev, ec, agent)
			},
		})
	}
	return h.run(ctx, plugin.CategoryGenericComment, ec, calls)
}

// run starts every call concurrently, waits for all of them to settle,
// and folds the outcomes into a per-plugin-name result map. This is a
// barrier, not a race: slow or failed handlers never cancel or starve
// siblings, and the map is only assembled once every call has concluded.
func (h *Handlers) run(ctx context.Context, cat plugin.Category, ec event.Context, calls []handlerCall) map[string]plugin.HandlerResult {
	start := time.Now()

	results := make(chan settled, len(calls))
	var wg sync.WaitGroup

	for _, c := range calls {
		wg.Add(1)
		go func(c handlerCall) {
			defer wg.Done()
			agent := plugin.NewAgent()
			res, err := invoke(ctx, c, agent)
			results <- settled{name: c.name, result: fold(res, err, agent)}
		}(c)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]plugin.HandlerResult, len(calls))
	for s := range results {
		out[s.name] = s.result
		if !s.result.Success {
			h.logger.Warn("plugin handler failed",
				"plugin", s.name,
				"category", string(cat),
				"event_guid", ec.GUID,
				"message", s.result.Message,
			)
		}
		h.publish(events.TypePluginCompleted, map[string]any{
			"plugin":      s.name,
			"category":    string(cat),
			"event_guid":  ec.GUID,
			"success":     s.result.Success,
			"took_action": s.result.TookAction,
		})
	}

	h.logger.Info("handlers settled",
		"category", string(cat),
		"event_guid", ec.GUID,
		"handlers", len(calls),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out
}

// invoke calls one handler, converting a panic into an error so no
// plugin can take down the fan-out.
func invoke(ctx context.Context, c handlerCall, agent *plugin.Agent) (res plugin.HandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.invoke(ctx, agent)
}

// fold combines a handler's returned result with its agent's final
// state. A failed invocation yields a synthesized result carrying only
// the error message; otherwise agent outputs merge into the result,
// took-action is OR'd, and an agent-recorded failure forces success=false.
func fold(res plugin.HandlerResult, err error, agent *plugin.Agent) plugin.HandlerResult {
	if err != nil {
		return plugin.HandlerResult{
			Success:    false,
			TookAction: false,
			Message:    err.Error(),
		}
	}

	outs := agent.Outputs()
	if len(outs) > 0 {
		if res.Outputs == nil {
			res.Outputs = make(map[string]string, len(outs))
		}
		for k, v := range outs {
			res.Outputs[k] = v
		}
	}

	if agent.DidTakeAction() {
		res.TookAction = true
	}
	if agent.HasFailed() {
		res.Success = false
		if res.Message == "" {
			res.Message = agent.FailureMessage()
		}
	}

	return res
}

func (h *Handlers) publish(eventType string, data any) {
	if h.hub != nil {
		h.hub.Publish(eventType, data)
	}
}
