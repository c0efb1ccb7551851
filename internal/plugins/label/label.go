// Package label applies and removes kind labels in response to chat
// commands in comments.
package label

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/event"
	"github.com/forgebot/forgebot/internal/plugin"
)

const pluginName = "label"

// One command per line; the label name is a single lowercase token.
var commandPattern = regexp.MustCompile(`(?m)^/(remove-)?kind\s+([a-z0-9-]+)\s*$`)

// New builds the label plugin.
func New(client *github.Client) *plugin.Plugin {
	l := &labeler{client: client}
	return &plugin.Plugin{
		Name:        pluginName,
		Description: "Applies and removes kind/* labels via chat commands.",
		Usage:       []string{"/kind <name>", "/remove-kind <name>"},
		Handlers: plugin.HandlerSet{
			GenericComment: l.handleComment,
		},
	}
}

type labeler struct {
	client *github.Client
}

func (l *labeler) handleComment(ctx context.Context, ev *event.GenericCommentEvent, ec event.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
	if ev.Action != "created" {
		return plugin.HandlerResult{Success: true, Message: "only new comments carry commands"}, nil
	}

	matches := commandPattern.FindAllStringSubmatch(ev.Body, -1)
	if len(matches) == 0 {
		return plugin.HandlerResult{Success: true, Message: "no label commands"}, nil
	}

	owner, repo := ec.OwnerRepo()
	if owner == "" {
		return plugin.HandlerResult{}, fmt.Errorf("label: repository missing from event context")
	}

	var added, removed []string
	for _, m := range matches {
		name := "kind/" + m[2]
		if m[1] == "" {
			_, _, err := l.client.Issues.AddLabelsToIssue(ctx, owner, repo, ev.Number, []string{name})
			if err != nil {
				return plugin.HandlerResult{}, fmt.Errorf("label: adding %q to %s#%d: %w", name, ec.Repository, ev.Number, err)
			}
			added = append(added, name)
		} else {
			_, err := l.client.Issues.RemoveLabelForIssue(ctx, owner, repo, ev.Number, name)
			if err != nil {
				return plugin.HandlerResult{}, fmt.Errorf("label: removing %q from %s#%d: %w", name, ec.Repository, ev.Number, err)
			}
			removed = append(removed, name)
		}
	}

	agent.TookAction()
	if len(added) > 0 {
		agent.SetOutput("labels_added", strings.Join(added, ","))
	}
	if len(removed) > 0 {
		agent.SetOutput("labels_removed", strings.Join(removed, ","))
	}
	return plugin.HandlerResult{
		Success:    true,
		TookAction: true,
		Message:    fmt.Sprintf("added %d and removed %d labels on %s#%d", len(added), len(removed), ec.Repository, ev.Number),
	}, nil
}
