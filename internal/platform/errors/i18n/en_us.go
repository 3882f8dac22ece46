package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown                 = "UNKNOWN"
	CodeScriptNotFound          = "SCRIPT_NOT_FOUND"
	CodeCharacterNotFound       = "CHARACTER_NOT_FOUND"
	CodeScriptRoleUnknown       = "SCRIPT_ROLE_UNKNOWN"
	CodeScriptDuplicateRole     = "SCRIPT_DUPLICATE_ROLE"
	CodeScriptBadDistribution   = "SCRIPT_BAD_DISTRIBUTION"
	CodeAmbiguousCatalogEntry   = "AMBIGUOUS_CATALOG_ENTRY"
	CodeDuplicateCharacter      = "DUPLICATE_CHARACTER"
	CodeGameNotFound            = "GAME_NOT_FOUND"
	CodePlayerNotFound          = "PLAYER_NOT_FOUND"
	CodeInvalidPlayerCount      = "INVALID_PLAYER_COUNT"
	CodeInvalidTransition       = "INVALID_PHASE_TRANSITION"
	CodeSeatTaken               = "SEAT_TAKEN"
	CodeGameEnded               = "GAME_ENDED"
	CodeNomineeAlreadyNominated = "NOMINEE_ALREADY_NOMINATED"
	CodeVoterNotAlive           = "VOTER_NOT_ALIVE"
	CodeNominationClosed        = "NOMINATION_CLOSED"
	CodeDuplicateHandler        = "DUPLICATE_HANDLER"
	CodeInvalidTarget           = "INVALID_TARGET"
	CodeJournalEntryInvalid     = "JOURNAL_ENTRY_INVALID"
	CodeJournalBadFilter        = "JOURNAL_BAD_FILTER"
	CodeProfileNotFound         = "NPC_PROFILE_NOT_FOUND"
	CodeBridgeTimeout           = "BRIDGE_TIMEOUT"
	CodeBridgeClosed            = "BRIDGE_CLOSED"
	CodeBridgeMethod            = "BRIDGE_UNKNOWN_METHOD"
	CodeNotFound                = "NOT_FOUND"
)

// enUS maps error codes to en-US message templates. Templates may reference
// fields from the error's Metadata map.
var enUS = map[Code]string{
	CodeUnknown:                 "Something went wrong. Please try again.",
	CodeScriptNotFound:          "Script {{.script_id}} was not found.",
	CodeCharacterNotFound:       "Character {{.character_id}} was not found.",
	CodeScriptRoleUnknown:       "Script references unknown character {{.character_id}}.",
	CodeScriptDuplicateRole:     "Script lists character {{.character_id}} more than once.",
	CodeScriptBadDistribution:   "Role distribution does not match the seated player count.",
	CodeAmbiguousCatalogEntry:   "Character {{.character_id}} could not be classified and was skipped.",
	CodeDuplicateCharacter:      "Character {{.character_id}} is already in the catalog.",
	CodeGameNotFound:            "Game {{.game_id}} was not found.",
	CodePlayerNotFound:          "Player {{.player_id}} was not found.",
	CodeInvalidPlayerCount:      "This script needs between {{.min}} and {{.max}} players.",
	CodeInvalidTransition:       "The game cannot move from {{.from}} to {{.to}}.",
	CodeSeatTaken:               "Seat {{.seat}} is already taken.",
	CodeGameEnded:               "The game has already ended.",
	CodeNomineeAlreadyNominated: "{{.nominee}} has already been nominated today.",
	CodeVoterNotAlive:           "Dead players cannot vote.",
	CodeNominationClosed:        "Nominations are closed.",
	CodeDuplicateHandler:        "An ability handler is already registered for this character and phase.",
	CodeInvalidTarget:           "That target is not valid for this ability.",
	CodeJournalEntryInvalid:     "The journal entry is incomplete.",
	CodeJournalBadFilter:        "The journal filter expression is invalid.",
	CodeProfileNotFound:         "NPC profile {{.profile_id}} was not found.",
	CodeBridgeTimeout:           "The NPC agent did not answer in time.",
	CodeBridgeClosed:            "The NPC agent is not running.",
	CodeBridgeMethod:            "The NPC agent asked for an unsupported operation.",
	CodeNotFound:                "The requested resource was not found.",
}
