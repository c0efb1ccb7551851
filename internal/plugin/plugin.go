// Package plugin defines the behavior-module contract: the plugin type
// and its typed handler set, the per-invocation agent, and the registry
// that is the single source of truth for which plugins exist and which
// are active.
package plugin

import (
	"context"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/event"
)

// Category identifies one handler category. The set is closed; the
// registry exposes one typed accessor per tag and the dispatcher selects
// exactly one tag per raw event, or none.
type Category string

const (
	CategoryIssue          Category = "issue"
	CategoryIssueComment   Category = "issue_comment"
	CategoryPullRequest    Category = "pull_request"
	CategoryPush           Category = "push"
	CategoryReview         Category = "review"
	CategoryGenericComment Category = "generic_comment"
)

// Categories lists all handler categories in a fixed order.
func Categories() []Category {
	return []Category{
		CategoryIssue,
		CategoryIssueComment,
		CategoryPullRequest,
		CategoryPush,
		CategoryReview,
		CategoryGenericComment,
	}
}

// HandlerResult is the value a handler produces, immutable once returned.
type HandlerResult struct {
	Success    bool
	Message    string
	TookAction bool
	Outputs    map[string]string
}

// Typed handler functions, one signature per category. Each receives the
// typed payload, the read-only event context, and an agent it exclusively
// owns for the duration of the call.
type (
	IssueHandler          func(ctx context.Context, ev *github.IssuesEvent, ec event.Context, agent *Agent) (HandlerResult, error)
	IssueCommentHandler   func(ctx context.Context, ev *github.IssueCommentEvent, ec event.Context, agent *Agent) (HandlerResult, error)
	PullRequestHandler    func(ctx context.Context, ev *github.PullRequestEvent, ec event.Context, agent *Agent) (HandlerResult, error)
	PushHandler           func(ctx context.Context, ev *github.PushEvent, ec event.Context, agent *Agent) (HandlerResult, error)
	ReviewHandler         func(ctx context.Context, ev *github.PullRequestReviewEvent, ec event.Context, agent *Agent) (HandlerResult, error)
	GenericCommentHandler func(ctx context.Context, ev *event.GenericCommentEvent, ec event.Context, agent *Agent) (HandlerResult, error)
)

// HandlerSet is a plugin's declarative capability set: a nil field means
// the plugin does not process that category.
type HandlerSet struct {
	Issue          IssueHandler
	IssueComment   IssueCommentHandler
	PullRequest    PullRequestHandler
	Push           PushHandler
	Review         ReviewHandler
	GenericComment GenericCommentHandler
}

// Plugin is a registered behavior module. Effectively immutable after
// registration apart from the Enabled flag, which configuration owns.
type Plugin struct {
	// Name is the registry key; must be unique among registered plugins.
	Name string

	// Description is human-readable help metadata.
	Description string

	// Usage lists the chat commands the plugin reacts to, if any.
	Usage []string

	// Handlers declares which event categories the plugin processes.
	Handlers HandlerSet

	// Enabled is the tri-state activation flag: nil or true means active,
	// only explicit false deactivates. The registry consults it on every
	// enabled-set query.
	Enabled *bool
}

// Implements reports whether the plugin declares a handler for the category.
func (p *Plugin) Implements(cat Category) bool {
	switch cat {
	case CategoryIssue:
		return p.Handlers.Issue != nil
	case CategoryIssueComment:
		return p.Handlers.IssueComment != nil
	case CategoryPullRequest:
		return p.Handlers.PullRequest != nil
	case CategoryPush:
		return p.Handlers.Push != nil
	case CategoryReview:
		return p.Handlers.Review != nil
	case CategoryGenericComment:
		return p.Handlers.GenericComment != nil
	}
	return false
}

// Categories returns the categories this plugin implements, in the fixed
// category order.
func (p *Plugin) Categories() []Category {
	var out []Category
	for _, cat := range Categories() {
		if p.Implements(cat) {
			out = append(out, cat)
		}
	}
	return out
}

// IsEnabled reports whether the plugin is active. Absence of an explicit
// flag counts as enabled.
func (p *Plugin) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}
