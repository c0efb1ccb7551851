// Package lgtm manages the lgtm label on pull requests, driven by chat
// commands and review approvals.
package lgtm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/event"
	"github.com/forgebot/forgebot/internal/plugin"
)

const (
	pluginName = "lgtm"
	labelName  = "lgtm"
)

var commandPattern = regexp.MustCompile(`(?m)^/lgtm(\s+cancel)?\s*$`)

// New builds the lgtm plugin.
func New(client *github.Client) *plugin.Plugin {
	l := &approver{client: client}
	return &plugin.Plugin{
		Name:        pluginName,
		Description: "Adds and removes the lgtm label on pull requests.",
		Usage:       []string{"/lgtm", "/lgtm cancel"},
		Handlers: plugin.HandlerSet{
			GenericComment: l.handleComment,
			Review:         l.handleReview,
		},
	}
}

type approver struct {
	client *github.Client
}

func (l *approver) handleComment(ctx context.Context, ev *event.GenericCommentEvent, ec event.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
	if ev.Action != "created" {
		return plugin.HandlerResult{Success: true, Message: "only new comments carry commands"}, nil
	}
	m := commandPattern.FindStringSubmatch(ev.Body)
	if m == nil {
		return plugin.HandlerResult{Success: true, Message: "no lgtm command"}, nil
	}
	if !ev.IsPR {
		return plugin.HandlerResult{Success: true, Message: "lgtm only applies to pull requests"}, nil
	}

	cancel := strings.TrimSpace(m[1]) == "cancel"
	return l.apply(ctx, ec, ev.Number, cancel, agent)
}

// handleReview treats an approving review as /lgtm and a
// changes-requested review as /lgtm cancel.
func (l *approver) handleReview(ctx context.Context, ev *github.PullRequestReviewEvent, ec event.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
	if ev.GetAction() != "submitted" {
		return plugin.HandlerResult{Success: true, Message: "not a submitted review"}, nil
	}

	switch strings.ToLower(ev.GetReview().GetState()) {
	case "approved":
		return l.apply(ctx, ec, ev.GetPullRequest().GetNumber(), false, agent)
	case "changes_requested":
		return l.apply(ctx, ec, ev.GetPullRequest().GetNumber(), true, agent)
	}
	return plugin.HandlerResult{Success: true, Message: "review state does not affect lgtm"}, nil
}

func (l *approver) apply(ctx context.Context, ec event.Context, number int, cancel bool, agent *plugin.Agent) (plugin.HandlerResult, error) {
	owner, repo := ec.OwnerRepo()
	if owner == "" {
		return plugin.HandlerResult{}, fmt.Errorf("lgtm: repository missing from event context")
	}

	if cancel {
		resp, err := l.client.Issues.RemoveLabelForIssue(ctx, owner, repo, number, labelName)
		// Removing an absent label is a no-op, not a failure.
		if err != nil && (resp == nil || resp.StatusCode != 404) {
			return plugin.HandlerResult{}, fmt.Errorf("lgtm: removing label from %s#%d: %w", ec.Repository, number, err)
		}
		agent.TookAction()
		agent.SetOutput("lgtm", "removed")
		return plugin.HandlerResult{
			Success:    true,
			TookAction: true,
			Message:    fmt.Sprintf("removed lgtm from %s#%d", ec.Repository, number),
		}, nil
	}

	_, _, err := l.client.Issues.AddLabelsToIssue(ctx, owner, repo, number, []string{labelName})
	if err != nil {
		return plugin.HandlerResult{}, fmt.Errorf("lgtm: adding label to %s#%d: %w", ec.Repository, number, err)
	}
	agent.TookAction()
	agent.SetOutput("lgtm", "added")
	return plugin.HandlerResult{
		Success:    true,
		TookAction: true,
		Message:    fmt.Sprintf("added lgtm to %s#%d", ec.Repository, number),
	}, nil
}
