package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
)

// fakeAgent reads request frames and answers according to per-method
// scripts. Methods without a script never respond.
type fakeAgent struct {
	in  *io.PipeReader
	out *io.PipeWriter

	mu      sync.Mutex
	answers map[string]string
}

func newFakeAgent(in *io.PipeReader, out *io.PipeWriter) *fakeAgent {
	return &fakeAgent{in: in, out: out, answers: make(map[string]string)}
}

func (a *fakeAgent) answer(method, result string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers[method] = result
}

func (a *fakeAgent) run() {
	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		var frame message
		if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
			continue
		}
		a.mu.Lock()
		result, ok := a.answers[frame.Method]
		a.mu.Unlock()
		if !ok {
			continue
		}
		response := message{
			JSONRPC: jsonRPCVersion,
			ID:      frame.ID,
			Result:  json.RawMessage(result),
		}
		encoded, _ := json.Marshal(response)
		a.out.Write(append(encoded, '\n'))
	}
}

// newTestBridge wires a bridge to a fake agent over in-memory pipes.
func newTestBridge(t *testing.T, opts ...Option) (*Bridge, *fakeAgent) {
	t.Helper()

	toAgentR, toAgentW := io.Pipe()
	fromAgentR, fromAgentW := io.Pipe()

	agent := newFakeAgent(toAgentR, fromAgentW)
	go agent.run()

	b := New(toAgentW, fromAgentR, nil, opts...)
	go b.Run(context.Background())

	t.Cleanup(func() {
		toAgentW.Close()
		fromAgentW.Close()
	})
	return b, agent
}

func TestCallRoundTrip(t *testing.T) {
	b, agent := newTestBridge(t)
	agent.answer("decide_vote", `{"vote":true}`)

	result, err := b.Call(context.Background(), "decide_vote", map[string]string{"game_id": "g1"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	var decoded struct {
		Vote bool `json:"vote"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		t.Fatalf("Unmarshal(result) error = %v", err)
	}
	if !decoded.Vote {
		t.Fatal("result vote = false, want true")
	}
}

func TestCallTimeoutRemovesOnlyItsOwnPending(t *testing.T) {
	b, agent := newTestBridge(t, WithCallTimeout(100*time.Millisecond))
	agent.answer("fast", `"ok"`)
	// "slow" has no script and never answers.

	// An earlier call answered before the timeout stays unaffected.
	if _, err := b.Call(context.Background(), "fast", nil); err != nil {
		t.Fatalf("Call(fast) error = %v", err)
	}

	_, err := b.Call(context.Background(), "slow", nil)
	if grimerrors.CodeOf(err) != grimerrors.CodeBridgeTimeout {
		t.Fatalf("Call(slow) error = %v, want code %s", err, grimerrors.CodeBridgeTimeout)
	}

	b.mu.Lock()
	remaining := len(b.pending)
	b.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("pending calls after timeout = %d, want 0", remaining)
	}

	// The registry still works after the timeout.
	if _, err := b.Call(context.Background(), "fast", nil); err != nil {
		t.Fatalf("Call(fast) after timeout error = %v", err)
	}
}

func TestAgentExitRejectsInFlightCalls(t *testing.T) {
	toAgentR, toAgentW := io.Pipe()
	fromAgentR, fromAgentW := io.Pipe()
	b := New(toAgentW, fromAgentR, nil, WithCallTimeout(5*time.Second))

	runDone := make(chan error, 1)
	go func() { runDone <- b.Run(context.Background()) }()

	// Drain the request so Call gets past the write.
	go func() {
		scanner := bufio.NewScanner(toAgentR)
		scanner.Scan()
		// Simulate the agent crashing with the call unanswered.
		fromAgentW.Close()
	}()

	_, err := b.Call(context.Background(), "decide_nomination", nil)
	if grimerrors.CodeOf(err) != grimerrors.CodeBridgeClosed {
		t.Fatalf("Call() error = %v, want code %s", err, grimerrors.CodeBridgeClosed)
	}

	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after the agent stream closed")
	}

	// Calls after close fail fast.
	_, err = b.Call(context.Background(), "decide_vote", nil)
	if grimerrors.CodeOf(err) != grimerrors.CodeBridgeClosed {
		t.Fatalf("Call(after close) error = %v, want code %s", err, grimerrors.CodeBridgeClosed)
	}
}

func TestInboundUnknownMethod(t *testing.T) {
	toAgentR, toAgentW := io.Pipe()
	fromAgentR, fromAgentW := io.Pipe()
	b := New(toAgentW, fromAgentR, NewDispatcher(nil, nil, nil))
	go b.Run(context.Background())
	t.Cleanup(func() {
		toAgentW.Close()
		fromAgentW.Close()
	})

	go fromAgentW.Write([]byte(`{"jsonrpc":"2.0","id":7,"method":"read_minds","params":{}}` + "\n"))

	scanner := bufio.NewScanner(toAgentR)
	if !scanner.Scan() {
		t.Fatal("no response frame")
	}
	var response message
	if err := json.Unmarshal(scanner.Bytes(), &response); err != nil {
		t.Fatalf("Unmarshal(response) error = %v", err)
	}
	if response.Error == nil || response.Error.Code != codeMethodNotFound {
		t.Fatalf("response.Error = %+v, want code %d", response.Error, codeMethodNotFound)
	}
	if string(response.ID) != "7" {
		t.Fatalf("response.ID = %s, want 7", response.ID)
	}
}

func TestInboundParseError(t *testing.T) {
	toAgentR, toAgentW := io.Pipe()
	fromAgentR, fromAgentW := io.Pipe()
	b := New(toAgentW, fromAgentR, nil)
	go b.Run(context.Background())
	t.Cleanup(func() {
		toAgentW.Close()
		fromAgentW.Close()
	})

	go fromAgentW.Write([]byte("this is not json\n"))

	scanner := bufio.NewScanner(toAgentR)
	if !scanner.Scan() {
		t.Fatal("no response frame")
	}
	if !strings.Contains(scanner.Text(), `"code":-32700`) {
		t.Fatalf("response = %s, want parse error -32700", scanner.Text())
	}
}
