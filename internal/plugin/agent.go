package plugin

// Agent is the mutable per-call outcome collector. Each handler
// invocation exclusively owns exactly one Agent; it is never shared,
// aliased, or reused, so it carries no locking.
type Agent struct {
	outputs     map[string]string
	actionTaken bool
	failed      bool
	failure     string
}

// NewAgent creates a fresh agent for one handler invocation.
func NewAgent() *Agent {
	return &Agent{
		outputs: make(map[string]string),
	}
}

// SetOutput stores or overwrites a named string output. Neither name nor
// value is validated.
func (a *Agent) SetOutput(name, value string) {
	a.outputs[name] = value
}

// TookAction marks that the plugin produced a user-visible action.
// One-way: once set it is never unset. Idempotent.
func (a *Agent) TookAction() {
	a.actionTaken = true
}

// SetFailed records a failure message. Last write wins. It does not halt
// the handler's own control flow; the handler still returns its result.
func (a *Agent) SetFailed(message string) {
	a.failed = true
	a.failure = message
}

// Outputs returns a defensive copy of the accumulated outputs. Mutation
// of the agent after the call never reflects in a previously returned map.
func (a *Agent) Outputs() map[string]string {
	out := make(map[string]string, len(a.outputs))
	for k, v := range a.outputs {
		out[k] = v
	}
	return out
}

// DidTakeAction reports whether the action flag was set.
func (a *Agent) DidTakeAction() bool {
	return a.actionTaken
}

// HasFailed reports whether a failure was recorded.
func (a *Agent) HasFailed() bool {
	return a.failed
}

// FailureMessage returns the most recent failure message, or "".
func (a *Agent) FailureMessage() string {
	return a.failure
}
