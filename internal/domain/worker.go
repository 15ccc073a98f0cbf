package domain

import "context"

// NodeStatus is the terminal status of a single graph node execution.
type NodeStatus string

const (
	NodeSuccess  NodeStatus = "success"
	NodeFailed   NodeStatus = "failed"
	NodeTimedOut NodeStatus = "timed_out"
)

// WorkerResult is the outcome of a single worker invocation.
type WorkerResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	// Status is optional; an empty status with a nil error means success.
	Status NodeStatus
}

// Worker is an opaque analytical unit: it takes a task description plus the
// shared context accumulated so far and produces a free-text report. Workers
// are expected to be non-deterministic and to fail occasionally; they must
// honor ctx cancellation since the executor enforces per-node timeouts.
type Worker interface {
	Invoke(ctx context.Context, task string, shared map[string]string) (WorkerResult, error)
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(ctx context.Context, task string, shared map[string]string) (WorkerResult, error)

// Invoke calls f.
func (f WorkerFunc) Invoke(ctx context.Context, task string, shared map[string]string) (WorkerResult, error) {
	return f(ctx, task, shared)
}
