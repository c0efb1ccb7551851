package event

// Shape predicates over the raw, untyped payload. Each succeeds iff the
// named key exists and holds a non-null structured object. They are pure,
// independent, and never panic; categories requiring multiple
// substructures AND them together.

// IsValid reports whether the payload is a non-null structured object.
// This is the only check performed before any other processing; failing
// it aborts the whole invocation rather than any single plugin.
func IsValid(payload map[string]any) bool {
	return payload != nil
}

// HasIssue reports whether the payload carries an issue substructure.
func HasIssue(payload map[string]any) bool {
	return hasObject(payload, "issue")
}

// HasPullRequest reports whether the payload carries a pull_request substructure.
func HasPullRequest(payload map[string]any) bool {
	return hasObject(payload, "pull_request")
}

// HasComment reports whether the payload carries a comment substructure.
func HasComment(payload map[string]any) bool {
	return hasObject(payload, "comment")
}

// HasReview reports whether the payload carries a review substructure.
func HasReview(payload map[string]any) bool {
	return hasObject(payload, "review")
}

// HasRepository reports whether the payload carries a repository substructure.
func HasRepository(payload map[string]any) bool {
	return hasObject(payload, "repository")
}

func hasObject(payload map[string]any, key string) bool {
	if payload == nil {
		return false
	}
	v, ok := payload[key]
	if !ok {
		return false
	}
	m, ok := v.(map[string]any)
	return ok && m != nil
}
