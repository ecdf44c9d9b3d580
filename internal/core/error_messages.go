package core

// error_messages.go maps errors to user-facing messages with codes for support
// reference.
//
// Typed errors from this package (ValidationError, UploadRejectedError,
// ErrNotFound, ErrConflict, ErrTooManyImports) map directly. Anything else is
// matched case-insensitively against known driver/transport patterns, first
// match wins. Unmatched errors fall back to ERR000.
//
// Codes by category:
//
//	VAL001  Validation failed (missing or invalid field)
//	VAL002  Malformed request (bad JSON body or id)
//	DB002   Name already exists
//	DB004   Database unreachable
//	DB006   Database timeout
//	NF001   Product not found
//	NF002   Route not found (web layer)
//	NF003   Method not allowed (web layer)
//	FILE001 File too large
//	FILE002 Invalid CSV
//	FILE004 No file provided
//	FILE006 Unsupported file type
//	UPL002  Too many imports in progress
//	UPL004  Request cancelled
//	UPL005  Request timed out
//	RATE001 Rate limited
//	ERR000  Unexpected error

import (
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text to user messages. More specific
// patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "Name already exists",
			Action:  "Choose a different product name",
			Code:    "DB002",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "Name already exists",
			Action:  "Choose a different product name",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Upload a smaller file",
			Code:    CodeFileTooLarge,
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "Failed to parse CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the server log for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
// Example:
//
//	msg := MapError(ErrNotFound)
//	// msg.Code == "NF001"
//	// msg.Message == "Product not found"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve *ValidationError
	var ue *UploadRejectedError
	switch {
	case errors.As(err, &ve):
		code := "VAL001"
		if strings.Contains(strings.ToLower(ve.Message), "parse csv") {
			code = "FILE002"
		}
		return UserMessage{Message: capitalize(ve.Message), Code: code}
	case errors.As(err, &ue):
		return UserMessage{Message: ue.Reason, Action: uploadAction(ue.Code), Code: ue.Code}
	case errors.Is(err, ErrNotFound):
		return UserMessage{Message: "Product not found", Code: "NF001"}
	case errors.Is(err, ErrConflict):
		return UserMessage{Message: "Name already exists", Action: "Choose a different product name", Code: "DB002"}
	case errors.Is(err, ErrTooManyImports):
		return UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func uploadAction(code string) string {
	switch code {
	case CodeFileTooLarge:
		return "Upload a smaller file"
	case CodeNoFile:
		return "Select a file to upload"
	case CodeUnsupportedType:
		return "Check the file type and try again"
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
