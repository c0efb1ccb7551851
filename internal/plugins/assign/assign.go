// Package assign manages issue and pull request assignees via chat
// commands.
package assign

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/event"
	"github.com/forgebot/forgebot/internal/plugin"
)

const pluginName = "assign"

var commandPattern = regexp.MustCompile(`(?m)^/(un)?assign((?:\s+@?[-\w]+)*)\s*$`)

// New builds the assign plugin.
func New(client *github.Client) *plugin.Plugin {
	a := &assigner{client: client}
	return &plugin.Plugin{
		Name:        pluginName,
		Description: "Assigns and unassigns users on issues and pull requests.",
		Usage:       []string{"/assign [@user ...]", "/unassign [@user ...]"},
		Handlers: plugin.HandlerSet{
			GenericComment: a.handleComment,
		},
	}
}

type assigner struct {
	client *github.Client
}

func (a *assigner) handleComment(ctx context.Context, ev *event.GenericCommentEvent, ec event.Context, agent *plugin.Agent) (plugin.HandlerResult, error) {
	if ev.Action != "created" {
		return plugin.HandlerResult{Success: true, Message: "only new comments carry commands"}, nil
	}

	matches := commandPattern.FindAllStringSubmatch(ev.Body, -1)
	if len(matches) == 0 {
		return plugin.HandlerResult{Success: true, Message: "no assign commands"}, nil
	}

	owner, repo := ec.OwnerRepo()
	if owner == "" {
		return plugin.HandlerResult{}, fmt.Errorf("assign: repository missing from event context")
	}

	var assigned, unassigned []string
	for _, m := range matches {
		users := parseUsers(m[2], ev.User)
		if m[1] == "" {
			_, _, err := a.client.Issues.AddAssignees(ctx, owner, repo, ev.Number, users)
			if err != nil {
				return plugin.HandlerResult{}, fmt.Errorf("assign: assigning %v on %s#%d: %w", users, ec.Repository, ev.Number, err)
			}
			assigned = append(assigned, users...)
		} else {
			_, _, err := a.client.Issues.RemoveAssignees(ctx, owner, repo, ev.Number, users)
			if err != nil {
				return plugin.HandlerResult{}, fmt.Errorf("assign: unassigning %v on %s#%d: %w", users, ec.Repository, ev.Number, err)
			}
			unassigned = append(unassigned, users...)
		}
	}

	agent.TookAction()
	if len(assigned) > 0 {
		agent.SetOutput("assigned", strings.Join(assigned, ","))
	}
	if len(unassigned) > 0 {
		agent.SetOutput("unassigned", strings.Join(unassigned, ","))
	}
	return plugin.HandlerResult{
		Success:    true,
		TookAction: true,
		Message:    fmt.Sprintf("assigned %d and unassigned %d users on %s#%d", len(assigned), len(unassigned), ec.Repository, ev.Number),
	}, nil
}

// parseUsers splits the command arguments into logins; a bare command
// targets the commenter.
func parseUsers(args, commenter string) []string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return []string{commenter}
	}
	users := make([]string, 0, len(fields))
	for _, f := range fields {
		users = append(users, strings.TrimPrefix(f, "@"))
	}
	return users
}
