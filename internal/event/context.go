// Package event defines the immutable per-invocation event context, the
// payload shape predicates that gate dispatch, and the normalized
// generic-comment view shared by all comment-shaped webhooks.
package event

import "strings"

// Context carries the immutable facts of one event invocation. It is
// built once by the dispatcher and consumed read-only by every handler.
type Context struct {
	// EventName is the raw webhook event name (e.g. "issue_comment").
	EventName string

	// GUID is the event correlation identifier: the webhook delivery ID
	// when the transport supplies one, otherwise a generated UUID.
	GUID string

	// Repository is the qualified "owner/name" of the hosting repository.
	Repository string

	// Ref and SHA describe the commit reference for push-shaped events.
	Ref string
	SHA string

	// Actor is the login of the user that triggered the event.
	Actor string

	// Workflow and RunID identify the CI run that delivered the event,
	// when running as a workflow step. Empty in serve mode.
	Workflow string
	RunID    string
}

// NewContext extracts the common context fields from a raw payload.
// Missing substructures simply leave fields empty; predicates in this
// package gate which handlers ever see the payload.
func NewContext(eventName, guid string, payload map[string]any) Context {
	c := Context{
		EventName: eventName,
		GUID:      guid,
	}

	if repo, ok := payload["repository"].(map[string]any); ok {
		c.Repository, _ = repo["full_name"].(string)
	}
	if sender, ok := payload["sender"].(map[string]any); ok {
		c.Actor, _ = sender["login"].(string)
	}
	c.Ref, _ = payload["ref"].(string)
	c.SHA, _ = payload["after"].(string)

	return c
}

// OwnerRepo splits the qualified repository name into owner and name.
// Both are empty when Repository is not of the "owner/name" form.
func (c Context) OwnerRepo() (owner, repo string) {
	owner, repo, ok := strings.Cut(c.Repository, "/")
	if !ok {
		return "", ""
	}
	return owner, repo
}
