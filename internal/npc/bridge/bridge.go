package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
	"github.com/louisbranch/grimoire/internal/platform/timeouts"
)

// Bridge multiplexes calls to and from one agent process over a pair of
// newline-delimited JSON streams. A timed-out call removes only its own
// pending slot; a closed stream rejects every in-flight call.
type Bridge struct {
	out     io.Writer
	in      io.Reader
	backend *Dispatcher
	logger  *slog.Logger

	callTimeout time.Duration

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan message
	closed  bool
	writeMu sync.Mutex
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithCallTimeout overrides the per-call deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.callTimeout = d }
}

// WithLogger sets the bridge's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New wires a bridge over the given streams. out is the agent's stdin,
// in its stdout. dispatcher answers the agent's inbound queries and may
// be nil for a call-only bridge.
func New(out io.Writer, in io.Reader, dispatcher *Dispatcher, opts ...Option) *Bridge {
	b := &Bridge{
		out:         out,
		in:          in,
		backend:     dispatcher,
		logger:      slog.Default(),
		callTimeout: timeouts.BridgeCall,
		pending:     make(map[int64]chan message),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Spawn starts the agent subprocess and returns a bridge attached to
// its stdio. The bridge's read loop runs until the process exits; the
// caller should also wait on Run's result.
func Spawn(ctx context.Context, dispatcher *Dispatcher, name string, args []string, opts ...Option) (*Bridge, *exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("open agent stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("open agent stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start agent: %w", err)
	}
	return New(stdin, stdout, dispatcher, opts...), cmd, nil
}

// Run reads frames until the stream closes, answering inbound requests
// and completing pending calls. On return every in-flight call has
// been rejected.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.closeAll()

	scanner := bufio.NewScanner(b.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame message
		if err := json.Unmarshal(line, &frame); err != nil {
			b.logger.Warn("bridge: dropping unparseable frame", "error", err)
			b.respond(message{
				JSONRPC: jsonRPCVersion,
				Error:   &rpcError{Code: codeParseError, Message: "parse error"},
			})
			continue
		}

		if frame.isRequest() {
			b.handleRequest(ctx, frame)
			continue
		}
		b.deliver(frame)
	}
	return scanner.Err()
}

// Call sends one request to the agent and waits for its response. A
// missing response within the call timeout rejects with BridgeTimeout
// and removes only this call from the pending set.
func (b *Bridge) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var rawParams json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		rawParams = encoded
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, grimerrors.New(grimerrors.CodeBridgeClosed, "bridge is closed")
	}
	b.nextID++
	id := b.nextID
	ch := make(chan message, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	frame := message{
		JSONRPC: jsonRPCVersion,
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  rawParams,
	}
	if err := b.write(frame); err != nil {
		b.forget(id)
		return nil, grimerrors.Wrap(grimerrors.CodeBridgeClosed, "write to agent", err)
	}

	timer := time.NewTimer(b.callTimeout)
	defer timer.Stop()

	select {
	case response, ok := <-ch:
		if !ok {
			return nil, grimerrors.WithMetadata(grimerrors.CodeBridgeClosed, "agent went away", map[string]string{
				"method": method,
			})
		}
		if response.Error != nil {
			return nil, grimerrors.Wrap(grimerrors.CodeBridgeMethod, "agent returned error", response.Error)
		}
		return response.Result, nil
	case <-timer.C:
		b.forget(id)
		return nil, grimerrors.WithMetadata(grimerrors.CodeBridgeTimeout, "agent call timed out", map[string]string{
			"method":  method,
			"timeout": b.callTimeout.String(),
		})
	case <-ctx.Done():
		b.forget(id)
		return nil, ctx.Err()
	}
}

func (b *Bridge) handleRequest(ctx context.Context, frame message) {
	response := message{JSONRPC: jsonRPCVersion, ID: frame.ID}

	if b.backend == nil {
		response.Error = &rpcError{Code: codeMethodNotFound, Message: "no backend attached"}
	} else {
		result, rpcErr := b.backend.Dispatch(ctx, frame.Method, frame.Params)
		if rpcErr != nil {
			response.Error = rpcErr
		} else {
			response.Result = result
		}
	}

	// Requests without an id are notifications; they get no response.
	if len(frame.ID) == 0 {
		return
	}
	b.respond(response)
}

func (b *Bridge) respond(frame message) {
	if err := b.write(frame); err != nil {
		b.logger.Warn("bridge: write response failed", "error", err)
	}
}

func (b *Bridge) write(frame message) error {
	encoded, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if _, err := b.out.Write(append(encoded, '\n')); err != nil {
		return err
	}
	return nil
}

// deliver routes a response frame to its pending call, if still waiting.
func (b *Bridge) deliver(frame message) {
	id, err := strconv.ParseInt(string(frame.ID), 10, 64)
	if err != nil {
		b.logger.Warn("bridge: response with unknown id shape", "id", string(frame.ID))
		return
	}

	b.mu.Lock()
	ch, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if ok {
		ch <- frame
	}
}

// forget drops one pending call, leaving the rest intact.
func (b *Bridge) forget(id int64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// closeAll marks the bridge closed and rejects every in-flight call.
func (b *Bridge) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
}
