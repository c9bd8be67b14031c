package failure

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Code is the closed set of failure classifications persisted on job rows.
// Raw error text never reaches a status column; it always passes through
// Classify + FormatLastError first.
type Code string

const (
	CodePromptInvalid      Code = "PROMPT_INVALID"
	CodeLLMTimeout         Code = "LLM_TIMEOUT"
	CodeLLMRateLimit       Code = "LLM_RATE_LIMIT"
	CodeLLMResponseInvalid Code = "LLM_RESPONSE_INVALID"
	CodeParseFailed        Code = "PARSE_FAILED"
	CodeValidationFailed   Code = "VALIDATION_FAILED"
	CodeDependencyMissing  Code = "DEPENDENCY_MISSING"
	CodeDBWriteFailed      Code = "DB_WRITE_FAILED"
	CodeLockFailed         Code = "LOCK_FAILED"
)

// maxMessageLen bounds the message part of a formatted last_error string so
// it stays safe for a text column and log greps.
const maxMessageLen = 200

// Classify maps a raw error message onto a Code by case-insensitive
// substring match, defaulting to DB_WRITE_FAILED.
func Classify(msg string) Code {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "timeout"):
		return CodeLLMTimeout
	case strings.Contains(m, "rate limit"):
		return CodeLLMRateLimit
	case strings.Contains(m, "parse"), strings.Contains(m, "invalid json"):
		return CodeParseFailed
	case strings.Contains(m, "validation"):
		return CodeValidationFailed
	case strings.Contains(m, "missing"), strings.Contains(m, "not found"):
		return CodeDependencyMissing
	case strings.Contains(m, "lock"), strings.Contains(m, "concurrent"):
		return CodeLockFailed
	default:
		return CodeDBWriteFailed
	}
}

// ClassifyErr is Classify over an error value.
func ClassifyErr(err error) Code {
	if err == nil {
		return CodeDBWriteFailed
	}
	return Classify(err.Error())
}

// FormatLastError renders "<CODE>::<first line of message, capped>".
func FormatLastError(code Code, msg string) string {
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	return fmt.Sprintf("%s::%s", code, msg)
}

// FormatChildFailure renders a parent's last_error when a child job failed,
// referencing the child by type and id instead of duplicating its message.
// Keeps error strings bounded as failures bubble up the tree.
func FormatChildFailure(childID uuid.UUID, childType string, childCode Code) string {
	return fmt.Sprintf("CHILD_FAILED::%s(%s)::%s", childType, childID, childCode)
}
