package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/event"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/log"
	"github.com/forgebot/forgebot/internal/plugin"
)

// Summary is what one dispatch invocation surfaces to its caller.
type Summary struct {
	// Outputs is the fixed summary set emitted on every non-fatal
	// completion: event_name, event_guid, repository, plugins_enabled.
	Outputs map[string]string

	// Category is the handler category that ran, or "" for a no-op.
	Category plugin.Category

	// Results maps plugin name to its settled HandlerResult. Empty for
	// no-op events.
	Results map[string]plugin.HandlerResult
}

// Dispatcher is the entry orchestrator: it validates the raw payload,
// classifies the event into exactly one handler category (or none), and
// hands off to the fan-out engine.
type Dispatcher struct {
	cfg      *config.Config
	registry *plugin.Registry
	handlers *Handlers
	hub      *events.Hub
	logger   *slog.Logger
}

// New builds a Dispatcher, registering the configured subset of the
// plugin catalog. With an explicit plugin list, exactly the named
// plugins register (unknown names are a configuration error); otherwise
// every catalog plugin registers carrying its configured enabled flag.
func New(cfg *config.Config, catalog []*plugin.Plugin, hub *events.Hub) (*Dispatcher, error) {
	registry := plugin.NewRegistry()

	if len(cfg.PluginList) > 0 {
		byName := make(map[string]*plugin.Plugin, len(catalog))
		for _, p := range catalog {
			byName[p.Name] = p
		}
		for _, name := range cfg.PluginList {
			p, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("unknown plugin %q in plugin list", name)
			}
			registry.Register(p)
		}
	} else {
		for _, p := range catalog {
			if pc, ok := cfg.Plugins[p.Name]; ok {
				enabled := pc.IsEnabled()
				p.Enabled = &enabled
			}
			registry.Register(p)
		}
	}

	return &Dispatcher{
		cfg:      cfg,
		registry: registry,
		handlers: NewHandlers(registry, hub),
		hub:      hub,
		logger:   log.WithComponent("dispatcher"),
	}, nil
}

// Registry exposes the dispatcher's registry for inspection.
func (d *Dispatcher) Registry() *plugin.Registry {
	return d.registry
}

// Dispatch processes exactly one raw event. deliveryID may be empty, in
// which case a correlation UUID is generated.
//
// It fails only on precondition violations (missing credential, invalid
// payload); per-plugin failures are folded into the Summary and never
// escalate. Events outside the demux table complete successfully with
// zero handler invocations.
func (d *Dispatcher) Dispatch(ctx context.Context, eventName, deliveryID string, payload []byte) (*Summary, error) {
	if d.cfg.GitHub.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if !event.IsValid(raw) {
		return nil, fmt.Errorf("invalid event payload: not an object")
	}

	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	ec := event.NewContext(eventName, deliveryID, raw)
	ec.Workflow = d.cfg.Service.Workflow
	ec.RunID = d.cfg.Service.RunID

	evLogger := d.logger.With("event", eventName, "event_guid", ec.GUID, "repository", ec.Repository)
	evLogger.Info("dispatching event", "actor", ec.Actor)
	d.publish(events.TypeDispatchStarted, map[string]string{
		"event":      eventName,
		"event_guid": ec.GUID,
		"repository": ec.Repository,
	})

	category, results, err := d.demux(ctx, eventName, raw, payload, ec, evLogger)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Outputs: map[string]string{
			"event_name":      eventName,
			"event_guid":      ec.GUID,
			"repository":      ec.Repository,
			"plugins_enabled": strings.Join(d.registry.EnabledNames(), ","),
		},
		Category: category,
		Results:  results,
	}

	d.publish(events.TypeDispatchCompleted, map[string]any{
		"event":      eventName,
		"event_guid": ec.GUID,
		"category":   string(category),
		"handlers":   len(results),
	})
	evLogger.Info("dispatch complete", "category", string(category), "handlers", len(results))

	return summary, nil
}

// demux maps the raw event name and payload shape to exactly one handler
// category, or none. The three comment-shaped webhooks (issue_comment,
// pull_request_review, pull_request_review_comment) all collapse into
// the generic-comment category; downstream plugins want a comment body
// plus whatever issue/PR/review context accompanies it, regardless of
// which webhook produced it.
func (d *Dispatcher) demux(
	ctx context.Context,
	eventName string,
	raw map[string]any,
	payload []byte,
	ec event.Context,
	logger *slog.Logger,
) (plugin.Category, map[string]plugin.HandlerResult, error) {
	switch eventName {
	case "issues":
		if !event.HasIssue(raw) {
			return d.skip(eventName, ec, logger, "missing issue")
		}
		var ev github.IssuesEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", nil, fmt.Errorf("decode issues event: %w", err)
		}
		return plugin.CategoryIssue, d.handlers.HandleIssue(ctx, &ev, ec), nil

	case "issue_comment":
		if !(event.HasComment(raw) && event.HasIssue(raw)) {
			return d.skip(eventName, ec, logger, "missing comment or issue")
		}
		var ev github.IssueCommentEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", nil, fmt.Errorf("decode issue_comment event: %w", err)
		}
		gc := event.GenericCommentFromIssueComment(&ev)
		return plugin.CategoryGenericComment, d.handlers.HandleGenericComment(ctx, gc, ec), nil

	case "pull_request":
		if !event.HasPullRequest(raw) {
			return d.skip(eventName, ec, logger, "missing pull_request")
		}
		var ev github.PullRequestEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", nil, fmt.Errorf("decode pull_request event: %w", err)
		}
		return plugin.CategoryPullRequest, d.handlers.HandlePullRequest(ctx, &ev, ec), nil

	case "pull_request_review":
		if !event.HasReview(raw) {
			return d.skip(eventName, ec, logger, "missing review")
		}
		var ev github.PullRequestReviewEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", nil, fmt.Errorf("decode pull_request_review event: %w", err)
		}
		gc := event.GenericCommentFromReview(&ev)
		return plugin.CategoryGenericComment, d.handlers.HandleGenericComment(ctx, gc, ec), nil

	case "pull_request_review_comment":
		if !event.HasComment(raw) {
			return d.skip(eventName, ec, logger, "missing comment")
		}
		var ev github.PullRequestReviewCommentEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", nil, fmt.Errorf("decode pull_request_review_comment event: %w", err)
		}
		gc := event.GenericCommentFromReviewComment(&ev)
		return plugin.CategoryGenericComment, d.handlers.HandleGenericComment(ctx, gc, ec), nil

	case "push":
		// Push payloads are always accepted; no shape predicate.
		var ev github.PushEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", nil, fmt.Errorf("decode push event: %w", err)
		}
		return plugin.CategoryPush, d.handlers.HandlePush(ctx, &ev, ec), nil

	default:
		return d.skip(eventName, ec, logger, "unhandled event name")
	}
}

// skip records a shape-mismatch non-event: not an error, a successful no-op.
func (d *Dispatcher) skip(eventName string, ec event.Context, logger *slog.Logger, reason string) (plugin.Category, map[string]plugin.HandlerResult, error) {
	logger.Info("event skipped", "reason", reason)
	d.publish(events.TypeDispatchSkipped, map[string]string{
		"event":      eventName,
		"event_guid": ec.GUID,
		"reason":     reason,
	})
	return "", map[string]plugin.HandlerResult{}, nil
}

func (d *Dispatcher) publish(eventType string, data any) {
	if d.hub != nil {
		d.hub.Publish(eventType, data)
	}
}
