// Package core provides the business logic for spreadsheet-to-database sync.
//
// # Error Codes Reference
//
// This file defines operator-facing error messages with codes. A failed table
// in a sync summary carries one of these codes so the cause can be looked up
// without digging through logs.
//
// Classified errors (see errors.go) map by kind first:
//
//	FETCH001 - Source export request failed (HTTP status or transport error)
//	FETCH002 - Source export timed out on every attempt
//	PARSE001 - Source export is not a rectangular CSV
//	CFG001   - Table kind has no registered rule set
//	DB001    - Database unreachable (ping failed)
//	DB002    - Table could not be dropped or created
//	DB003    - Delete or insert batch rejected; earlier batches stay applied
//	RUN001   - Sync run exceeded its time budget before a table started
//
// Unclassified errors fall back to case-insensitive substring patterns
// (first match wins), then to ERR000.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides operator-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFetch = UserMessage{
		Message: "Could not download the sheet export",
		Action:  "Check that the spreadsheet is shared for export and the sheet id is correct",
		Code:    "FETCH001",
	}
	msgFetchTimeout = UserMessage{
		Message: "Sheet export timed out on every attempt",
		Action:  "Try again later or raise FETCH_TIMEOUT",
		Code:    "FETCH002",
	}
	msgParse = UserMessage{
		Message: "Sheet export is not a valid CSV table",
		Action:  "Check the header row setting and for ragged rows in the sheet",
		Code:    "PARSE001",
	}
	msgValidationConfig = UserMessage{
		Message: "Unknown table type",
		Action:  "Only registered tables can be synced; see `sheetsync tables`",
		Code:    "CFG001",
	}
	msgConnection = UserMessage{
		Message: "Unable to reach the database",
		Action:  "Check TURSO_DATABASE_URL and TURSO_AUTH_TOKEN",
		Code:    "DB001",
	}
	msgSchema = UserMessage{
		Message: "Destination table could not be recreated",
		Action:  "Check the column names in the sheet header",
		Code:    "DB002",
	}
	msgTransaction = UserMessage{
		Message: "Loading rows failed; the table may be partially loaded",
		Action:  "Fix the reported row and run the sync again",
		Code:    "DB003",
	}
	msgTimeout = UserMessage{
		Message: "Sync run exceeded its time budget",
		Action:  "Raise SYNC_TIMEOUT or sync fewer tables per run",
		Code:    "RUN001",
	}
)

// errorPattern defines a pattern to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps raw error text (case-insensitive) to messages for errors
// that were not classified by a stage. The first matching pattern wins.
var errorPatterns = []errorPattern{
	{pattern: "connection refused", msg: msgConnection},
	{pattern: "no such host", msg: msgConnection},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Sync was cancelled",
			Action:  "Start a new run when ready",
			Code:    "RUN002",
		},
	},
	{
		pattern: "too many runs",
		msg: UserMessage{
			Message: "A sync run is already in progress",
			Action:  "Wait for the current run to finish",
			Code:    "RUN003",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Sync run not found",
			Action:  "Only recent runs are kept; list them with GET /api/runs",
			Code:    "RUN004",
		},
	},
	{pattern: "unknown table", msg: msgValidationConfig},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "Request body is not valid JSON",
			Action:  `Send {"tables": [...]} or an empty body`,
			Code:    "REQ001",
		},
	},
}

// DefaultErrorCode is the code of errors nothing else matches.
const DefaultErrorCode = "ERR000"

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    DefaultErrorCode,
}

// MapError converts an error to an operator-friendly message.
// Classified errors map by kind; anything else goes through the pattern table.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch KindOf(err) {
	case ErrFetch:
		if isTimeout(err) {
			return msgFetchTimeout
		}
		return msgFetch
	case ErrParse:
		return msgParse
	case ErrValidationConfig:
		return msgValidationConfig
	case ErrConnection:
		return msgConnection
	case ErrSchema:
		return msgSchema
	case ErrTransaction:
		return msgTransaction
	case ErrTimeout:
		return msgTimeout
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// ErrAttemptsExhausted marks a fetch that timed out on every attempt.
var ErrAttemptsExhausted = errors.New("attempts exhausted")

func isTimeout(err error) bool {
	return errors.Is(err, ErrAttemptsExhausted)
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
