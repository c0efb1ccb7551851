package plugin

// Registry holds registered plugins indexed by name, preserving
// registration order. Registration happens once, before any dispatch;
// during a dispatch cycle the registry is read-only, so it carries no
// locking.
type Registry struct {
	plugins map[string]*Plugin
	order   []string
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]*Plugin),
	}
}

// Register inserts or overwrites a plugin by name. Re-registration of an
// existing name wins over the previous entry and keeps its original
// position in the registration order.
func (r *Registry) Register(p *Plugin) {
	if _, exists := r.plugins[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.plugins[p.Name] = p
}

// Get retrieves a plugin by name. Absence is a valid outcome, not an error.
func (r *Registry) Get(name string) (*Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// All returns all registered plugins in registration order.
func (r *Registry) All() []*Plugin {
	out := make([]*Plugin, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.plugins[name])
	}
	return out
}

// Enabled returns the registered plugins whose enabled flag is not
// explicitly false, in registration order. The view is recomputed on
// every call, never cached.
func (r *Registry) Enabled() []*Plugin {
	var out []*Plugin
	for _, name := range r.order {
		if p := r.plugins[name]; p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// EnabledNames returns the names of the enabled plugins in registration order.
func (r *Registry) EnabledNames() []string {
	enabled := r.Enabled()
	out := make([]string, 0, len(enabled))
	for _, p := range enabled {
		out = append(out, p.Name)
	}
	return out
}

// Typed (plugin, handler) pairs returned by the per-category accessors.
// Order matches registration order; it exists for deterministic test
// assertions and carries no execution priority.
type (
	IssueEntry struct {
		Plugin  *Plugin
		Handler IssueHandler
	}
	IssueCommentEntry struct {
		Plugin  *Plugin
		Handler IssueCommentHandler
	}
	PullRequestEntry struct {
		Plugin  *Plugin
		Handler PullRequestHandler
	}
	PushEntry struct {
		Plugin  *Plugin
		Handler PushHandler
	}
	ReviewEntry struct {
		Plugin  *Plugin
		Handler ReviewHandler
	}
	GenericCommentEntry struct {
		Plugin  *Plugin
		Handler GenericCommentHandler
	}
)

// IssueHandlers returns the enabled plugins implementing the issue category.
func (r *Registry) IssueHandlers() []IssueEntry {
	var out []IssueEntry
	for _, p := range r.Enabled() {
		if p.Handlers.Issue != nil {
			out = append(out, IssueEntry{Plugin: p, Handler: p.Handlers.Issue})
		}
	}
	return out
}

// IssueCommentHandlers returns the enabled plugins implementing the
// issue-comment category.
func (r *Registry) IssueCommentHandlers() []IssueCommentEntry {
	var out []IssueCommentEntry
	for _, p := range r.Enabled() {
		if p.Handlers.IssueComment != nil {
			out = append(out, IssueCommentEntry{Plugin: p, Handler: p.Handlers.IssueComment})
		}
	}
	return out
}

// PullRequestHandlers returns the enabled plugins implementing the
// pull-request category.
func (r *Registry) PullRequestHandlers() []PullRequestEntry {
	var out []PullRequestEntry
	for _, p := range r.Enabled() {
		if p.Handlers.PullRequest != nil {
			out = append(out, PullRequestEntry{Plugin: p, Handler: p.Handlers.PullRequest})
		}
	}
	return out
}

// PushHandlers returns the enabled plugins implementing the push category.
func (r *Registry) PushHandlers() []PushEntry {
	var out []PushEntry
	for _, p := range r.Enabled() {
		if p.Handlers.Push != nil {
			out = append(out, PushEntry{Plugin: p, Handler: p.Handlers.Push})
		}
	}
	return out
}

// ReviewHandlers returns the enabled plugins implementing the review category.
func (r *Registry) ReviewHandlers() []ReviewEntry {
	var out []ReviewEntry
	for _, p := range r.Enabled() {
		if p.Handlers.Review != nil {
			out = append(out, ReviewEntry{Plugin: p, Handler: p.Handlers.Review})
		}
	}
	return out
}

// GenericCommentHandlers returns the enabled plugins implementing the
// generic-comment category.
func (r *Registry) GenericCommentHandlers() []GenericCommentEntry {
	var out []GenericCommentEntry
	for _, p := range r.Enabled() {
		if p.Handlers.GenericComment != nil {
			out = append(out, GenericCommentEntry{Plugin: p, Handler: p.Handlers.GenericComment})
		}
	}
	return out
}
