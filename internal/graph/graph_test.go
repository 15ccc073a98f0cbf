package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/zerodte/internal/domain"
)

func echoWorker(text string) domain.Worker {
	return domain.WorkerFunc(func(ctx context.Context, task string, shared map[string]string) (domain.WorkerResult, error) {
		return domain.WorkerResult{Text: text}, nil
	})
}

func TestBuildRejectsCycle(t *testing.T) {
	_, err := NewBuilder().
		AddNode("a", echoWorker("a"), time.Second).
		AddNode("b", echoWorker("b"), time.Second).
		AddEdge("a", "b").
		AddEdge("b", "a").
		Build()

	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Nodes)
}

func TestBuildRejectsDuplicateNode(t *testing.T) {
	_, err := NewBuilder().
		AddNode("a", echoWorker("a"), time.Second).
		AddNode("a", echoWorker("a"), time.Second).
		Build()

	var dupErr *DuplicateNodeError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "a", dupErr.Name)
}

func TestBuildRejectsDanglingEdge(t *testing.T) {
	_, err := NewBuilder().
		AddNode("a", echoWorker("a"), time.Second).
		AddEdge("a", "ghost").
		Build()

	var unknownErr *UnknownNodeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "ghost", unknownErr.Name)
}

func TestBuildIdentifiesUniqueSink(t *testing.T) {
	g, err := NewBuilder().
		AddNode("a", echoWorker("a"), time.Second).
		AddNode("b", echoWorker("b"), time.Second).
		AddNode("c", echoWorker("c"), time.Second).
		AddEdge("a", "b").
		AddEdge("a", "c").
		AddEdge("b", "c").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "c", g.Sink())
	assert.Equal(t, 3, g.Size())
}

func TestBuildNoUniqueSink(t *testing.T) {
	g, err := NewBuilder().
		AddNode("a", echoWorker("a"), time.Second).
		AddNode("b", echoWorker("b"), time.Second).
		AddNode("c", echoWorker("c"), time.Second).
		AddEdge("a", "b").
		AddEdge("a", "c").
		Build()

	require.NoError(t, err)
	assert.Empty(t, g.Sink())
}

func TestBuildRejectsLargerCycle(t *testing.T) {
	// a → b → c → d → b is cyclic even though a itself is not on the cycle.
	_, err := NewBuilder().
		AddNode("a", echoWorker("a"), time.Second).
		AddNode("b", echoWorker("b"), time.Second).
		AddNode("c", echoWorker("c"), time.Second).
		AddNode("d", echoWorker("d"), time.Second).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", "d").
		AddEdge("d", "b").
		Build()

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.NotContains(t, cycleErr.Nodes, "a")
}
