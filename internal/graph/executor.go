package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
)

// absentResult is the sentinel a dependent sees in place of a failed or
// timed-out predecessor's output.
const absentResult = "<predecessor produced no output>"

// NodeResult is the immutable record of one node's execution.
type NodeResult struct {
	Node         string            `json:"node"`
	Status       domain.NodeStatus `json:"status"`
	Text         string            `json:"text"`
	InputTokens  int               `json:"input_tokens"`
	OutputTokens int               `json:"output_tokens"`
	Latency      time.Duration     `json:"latency"`
}

// Report is the aggregate outcome of one graph execution.
type Report struct {
	Results           map[string]NodeResult `json:"results"`
	TotalInputTokens  int                   `json:"total_input_tokens"`
	TotalOutputTokens int                   `json:"total_output_tokens"`
	TotalLatency      time.Duration         `json:"total_latency"`
	Completed         int                   `json:"completed"`
	Total             int                   `json:"total"`
	// FinalText is the sink node's output; empty for multi-sink graphs.
	FinalText string `json:"final_text"`
}

// Execute runs the graph to completion. All nodes whose dependencies are
// satisfied run concurrently; a node with multiple predecessors runs exactly
// once, after every predecessor has settled. Node failures and timeouts are
// recorded in the report and do not abort the run: dependents still execute,
// seeing a sentinel in place of the missing output. Execute itself only
// returns an error when ctx is cancelled before the graph finishes.
func (g *Graph) Execute(ctx context.Context, task string, shared map[string]string) (*Report, error) {
	start := time.Now()

	report := &Report{
		Results: make(map[string]NodeResult, len(g.nodes)),
		Total:   len(g.nodes),
	}
	if len(g.nodes) == 0 {
		return report, nil
	}

	remaining := make(map[string]int, len(g.indegree))
	for name, d := range g.indegree {
		remaining[name] = d
	}

	done := make(chan NodeResult, len(g.nodes))
	var wg sync.WaitGroup

	// launch snapshots the node's context on the scheduler goroutine; by the
	// time a node becomes ready every predecessor result is already recorded.
	launch := func(name string) {
		nodeShared := g.nodeContext(shared, name, report)
		wg.Add(1)
		go func() {
			defer wg.Done()
			done <- g.runNode(ctx, g.nodes[name], task, nodeShared)
		}()
	}

	for name, d := range remaining {
		if d == 0 {
			launch(name)
		}
	}

	for finished := 0; finished < len(g.nodes); finished++ {
		select {
		case <-ctx.Done():
			go func() {
				// Drain stragglers so their goroutines can exit.
				wg.Wait()
				close(done)
			}()
			return nil, fmt.Errorf("graph: execute: %w", ctx.Err())
		case res := <-done:
			report.Results[res.Node] = res
			report.TotalInputTokens += res.InputTokens
			report.TotalOutputTokens += res.OutputTokens
			if res.Status == domain.NodeSuccess {
				report.Completed++
			}
			for _, dep := range g.dependents[res.Node] {
				remaining[dep]--
				if remaining[dep] == 0 {
					launch(dep)
				}
			}
		}
	}
	wg.Wait()

	report.TotalLatency = time.Since(start)
	if g.sink != "" {
		if res, ok := report.Results[g.sink]; ok && res.Status == domain.NodeSuccess {
			report.FinalText = res.Text
		}
	}
	return report, nil
}

// nodeContext builds the shared map a node sees: the caller's shared context
// plus one entry per predecessor holding its text output (or the absence
// sentinel when the predecessor failed or timed out).
func (g *Graph) nodeContext(shared map[string]string, name string, report *Report) map[string]string {
	out := make(map[string]string, len(shared)+len(g.predecessors[name]))
	for k, v := range shared {
		out[k] = v
	}
	for _, pred := range g.predecessors[name] {
		res, ok := report.Results[pred]
		if !ok || res.Status != domain.NodeSuccess {
			out[pred] = absentResult
			continue
		}
		out[pred] = res.Text
	}
	return out
}

// runNode invokes a single worker under its timeout. The invocation runs in
// its own goroutine so a worker that ignores ctx still gets cut off at the
// deadline; its result is then discarded.
func (g *Graph) runNode(ctx context.Context, n node, task string, shared map[string]string) NodeResult {
	nodeCtx := ctx
	var cancel context.CancelFunc
	if n.timeout > 0 {
		nodeCtx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	started := time.Now()

	type outcome struct {
		res domain.WorkerResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := n.worker.Invoke(nodeCtx, task, shared)
		ch <- outcome{res: res, err: err}
	}()

	select {
	case <-nodeCtx.Done():
		status := domain.NodeFailed
		text := fmt.Sprintf("node %s aborted: %v", n.name, nodeCtx.Err())
		if errors.Is(nodeCtx.Err(), context.DeadlineExceeded) {
			status = domain.NodeTimedOut
			text = fmt.Sprintf("node %s timed out after %s", n.name, n.timeout)
		}
		return NodeResult{
			Node:    n.name,
			Status:  status,
			Text:    text,
			Latency: time.Since(started),
		}
	case out := <-ch:
		result := NodeResult{
			Node:         n.name,
			Status:       domain.NodeSuccess,
			Text:         out.res.Text,
			InputTokens:  out.res.InputTokens,
			OutputTokens: out.res.OutputTokens,
			Latency:      time.Since(started),
		}
		if out.res.Status != "" {
			result.Status = out.res.Status
		}
		if out.err != nil {
			result.Status = domain.NodeFailed
			result.Text = fmt.Sprintf("node %s failed: %v", n.name, out.err)
		}
		return result
	}
}
