// Package errors provides structured error handling with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Auth errors
	CodeAuthCredentialMissing Code = "AUTH_CREDENTIAL_MISSING"
	CodeAuthCredentialExpired Code = "AUTH_CREDENTIAL_EXPIRED"
	CodeAuthLoginFailed       Code = "AUTH_LOGIN_FAILED"

	// Backend errors: failed transport, non-2xx responses, malformed envelopes
	CodeBackendRequest  Code = "BACKEND_REQUEST_FAILED"
	CodeBackendStatus   Code = "BACKEND_BAD_STATUS"
	CodeBackendEnvelope Code = "BACKEND_BAD_ENVELOPE"

	// Protocol errors: well-formed 2xx missing an expected field
	CodeProtocolMissingTicketID   Code = "PROTOCOL_MISSING_TICKET_ID"
	CodeProtocolMissingCredential Code = "PROTOCOL_MISSING_CREDENTIAL"
	CodeProtocolMissingMatch      Code = "PROTOCOL_MISSING_MATCH"
	CodeProtocolMissingRecord     Code = "PROTOCOL_MISSING_RECORD"
	CodeProtocolMemberCount       Code = "PROTOCOL_BAD_MEMBER_COUNT"

	// Matchmaking terminal states
	CodeTimeout             Code = "TIMEOUT"
	CodeMatchmakingCanceled Code = "MATCHMAKING_CANCELED"
	CodeMatchmakingFailed   Code = "MATCHMAKING_FAILED"
	CodeCanceled            Code = "CANCELED"

	// Record errors
	CodeRecordNotFound Code = "RECORD_NOT_FOUND"

	// Rules errors: surfaced locally, never sent to the backend
	CodeRulesViolation Code = "RULES_VIOLATION"
)
