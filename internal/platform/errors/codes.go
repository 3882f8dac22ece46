// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Catalog errors
	CodeScriptNotFound        Code = "SCRIPT_NOT_FOUND"
	CodeCharacterNotFound     Code = "CHARACTER_NOT_FOUND"
	CodeScriptRoleUnknown     Code = "SCRIPT_ROLE_UNKNOWN"
	CodeScriptDuplicateRole   Code = "SCRIPT_DUPLICATE_ROLE"
	CodeScriptBadDistribution Code = "SCRIPT_BAD_DISTRIBUTION"
	CodeAmbiguousCatalogEntry Code = "AMBIGUOUS_CATALOG_ENTRY"
	CodeDuplicateCharacter    Code = "DUPLICATE_CHARACTER"

	// Game errors
	CodeGameNotFound       Code = "GAME_NOT_FOUND"
	CodePlayerNotFound     Code = "PLAYER_NOT_FOUND"
	CodeInvalidPlayerCount Code = "INVALID_PLAYER_COUNT"
	CodeInvalidTransition  Code = "INVALID_PHASE_TRANSITION"
	CodeSeatTaken          Code = "SEAT_TAKEN"
	CodeGameEnded          Code = "GAME_ENDED"

	// Nomination/vote errors
	CodeNomineeAlreadyNominated Code = "NOMINEE_ALREADY_NOMINATED"
	CodeVoterNotAlive           Code = "VOTER_NOT_ALIVE"
	CodeNominationClosed        Code = "NOMINATION_CLOSED"

	// Action resolution errors
	CodeDuplicateHandler Code = "DUPLICATE_HANDLER"
	CodeInvalidTarget    Code = "INVALID_TARGET"

	// Journal errors
	CodeJournalEntryInvalid Code = "JOURNAL_ENTRY_INVALID"
	CodeJournalBadFilter    Code = "JOURNAL_BAD_FILTER"
	CodeJournalBadCursor    Code = "JOURNAL_BAD_CURSOR"

	// NPC/bridge errors
	CodeProfileNotFound Code = "NPC_PROFILE_NOT_FOUND"
	CodeBridgeTimeout   Code = "BRIDGE_TIMEOUT"
	CodeBridgeClosed    Code = "BRIDGE_CLOSED"
	CodeBridgeMethod    Code = "BRIDGE_UNKNOWN_METHOD"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidPlayerCount,
		CodeScriptDuplicateRole,
		CodeScriptBadDistribution,
		CodeJournalEntryInvalid,
		CodeJournalBadFilter,
		CodeJournalBadCursor:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeInvalidTransition,
		CodeInvalidTarget,
		CodeVoterNotAlive,
		CodeNominationClosed,
		CodeNomineeAlreadyNominated,
		CodeGameEnded,
		CodeAmbiguousCatalogEntry:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeScriptNotFound,
		CodeCharacterNotFound,
		CodeScriptRoleUnknown,
		CodeGameNotFound,
		CodePlayerNotFound,
		CodeProfileNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeDuplicateHandler,
		CodeDuplicateCharacter,
		CodeSeatTaken:
		return codes.AlreadyExists

	// DeadlineExceeded - bridge call timed out
	case CodeBridgeTimeout:
		return codes.DeadlineExceeded

	// Unavailable - bridge subprocess is gone
	case CodeBridgeClosed:
		return codes.Unavailable

	// Unimplemented - unknown bridge method
	case CodeBridgeMethod:
		return codes.Unimplemented

	default:
		return codes.Internal
	}
}
