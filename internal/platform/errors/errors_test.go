package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeInvalidTarget, "target is dead")
	if !stderrors.Is(err, New(CodeInvalidTarget, "different message")) {
		t.Fatal("expected errors with same code to match")
	}
	if stderrors.Is(err, New(CodeNotFound, "target is dead")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("row not found")
	err := Wrap(CodeGameNotFound, "load game", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if err.Error() != "load game" {
		t.Fatalf("message = %q, want %q", err.Error(), "load game")
	}
}

func TestCodeOfTraversesChain(t *testing.T) {
	inner := New(CodeDuplicateHandler, "handler exists")
	outer := fmt.Errorf("register: %w", inner)
	if got := CodeOf(outer); got != CodeDuplicateHandler {
		t.Fatalf("code = %s, want %s", got, CodeDuplicateHandler)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != CodeUnknown {
		t.Fatalf("code = %s, want %s", got, CodeUnknown)
	}
	if got := CodeOf(nil); got != CodeUnknown {
		t.Fatalf("code = %s, want %s", got, CodeUnknown)
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeInvalidPlayerCount, codes.InvalidArgument},
		{CodeInvalidTransition, codes.FailedPrecondition},
		{CodeInvalidTarget, codes.FailedPrecondition},
		{CodeVoterNotAlive, codes.FailedPrecondition},
		{CodeNotFound, codes.NotFound},
		{CodeScriptNotFound, codes.NotFound},
		{CodeDuplicateHandler, codes.AlreadyExists},
		{CodeBridgeTimeout, codes.DeadlineExceeded},
		{CodeBridgeClosed, codes.Unavailable},
		{CodeBridgeMethod, codes.Unimplemented},
		{CodeUnknown, codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Errorf("%s grpc code = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestToGRPCStatusAttachesDetails(t *testing.T) {
	err := WithMetadata(CodeInvalidPlayerCount, "6 players for a 7 player script", map[string]string{
		"min": "7",
		"max": "15",
	})
	st, ok := status.FromError(err.ToGRPCStatus("en-US", "This script needs between 7 and 15 players."))
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.InvalidArgument)
	}
	if len(st.Details()) != 2 {
		t.Fatalf("details = %d, want %d", len(st.Details()), 2)
	}
}
