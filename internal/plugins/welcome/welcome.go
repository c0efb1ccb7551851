// Package welcome greets the author of a newly opened issue or pull
// request with a short onboarding comment.
package welcome

import (
	"context"
	"fmt"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/event"
	"github.com/forgebot/forgebot/internal/plugin"
)

const pluginName = "welcome"

// New builds the welcome plugin.
func New(client *github.Client) *plugin.Plugin {
	w := &welcomer{client: client}
	return &plugin.Plugin{
		Name:        pluginName,
		Description: "Greets the author of a newly opened issue or pull request.",
		Handlers: plugin.HandlerSet{
			Issue:       w.handleIssue,
			PullRequest: w.handlePullRequest,
		},
	}
}

type welcomer struct {
	client *github.Client
}

func (w *welcomer) handleIssue(ctx context.Context, ev *github.IssuesEvent, ec event.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
	if ev.GetAction() != "opened" {
		return plugin.HandlerResult{Success: true, Message: "not a newly opened issue"}, nil
	}
	return w.greet(ctx, ec, ev.GetIssue().GetNumber(), ev.GetIssue().GetUser().GetLogin(), "issue", agent)
}

func (w *welcomer) handlePullRequest(ctx context.Context, ev *github.PullRequestEvent, ec event.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
	if ev.GetAction() != "opened" {
		return plugin.HandlerResult{Success: true, Message: "not a newly opened pull request"}, nil
	}
	return w.greet(ctx, ec, ev.GetPullRequest().GetNumber(), ev.GetPullRequest().GetUser().GetLogin(), "pull request", agent)
}

// greet posts the welcome comment. Pull request conversation comments go
// through the issues API, so one call path serves both shapes.
func (w *welcomer) greet(ctx context.Context, ec event.Context, number int, author, kind string, agent *plugin.Agent) (plugin.HandlerResult, error) {
	owner, repo := ec.OwnerRepo()
	if owner == "" {
		return plugin.HandlerResult{}, fmt.Errorf("welcome: repository missing from event context")
	}

	body := fmt.Sprintf("Welcome @%s! Thanks for opening this %s.", author, kind)
	_, _, err := w.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return plugin.HandlerResult{}, fmt.Errorf("welcome: creating comment on %s#%d: %w", ec.Repository, number, err)
	}

	agent.TookAction()
	agent.SetOutput("welcomed", author)
	return plugin.HandlerResult{
		Success:    true,
		TookAction: true,
		Message:    fmt.Sprintf("welcomed @%s on %s#%d", author, ec.Repository, number),
	}, nil
}
