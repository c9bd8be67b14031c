package failure

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want Code
	}{
		{"context deadline exceeded: timeout after 30s", CodeLLMTimeout},
		{"429: Rate Limit exceeded", CodeLLMRateLimit},
		{"failed to parse model output", CodeParseFailed},
		{"invalid json in response body", CodeParseFailed},
		{"validation failed on question count", CodeValidationFailed},
		{"subject not found", CodeDependencyMissing},
		{"missing chapter metadata", CodeDependencyMissing},
		{"could not acquire lock", CodeLockFailed},
		{"concurrent update detected", CodeLockFailed},
		{"pq: connection reset by peer", CodeDBWriteFailed},
		{"", CodeDBWriteFailed},
	}
	for _, c := range cases {
		if got := Classify(c.msg); got != c.want {
			t.Errorf("Classify(%q): want=%s got=%s", c.msg, c.want, got)
		}
	}
}

func TestFormatLastErrorTakesFirstLine(t *testing.T) {
	got := FormatLastError(CodeParseFailed, "Unexpected token <\nat line 2")
	if !strings.HasPrefix(got, "PARSE_FAILED::Unexpected token <") {
		t.Fatalf("unexpected prefix: %q", got)
	}
	if strings.ContainsAny(got, "\r\n") {
		t.Fatalf("formatted error contains a newline: %q", got)
	}
}

func TestFormatLastErrorBounded(t *testing.T) {
	long := strings.Repeat("x", 5000)
	got := FormatLastError(CodeLLMTimeout, long)
	if max := len(CodeLLMTimeout) + len("::") + maxMessageLen; len(got) > max {
		t.Fatalf("formatted error too long: %d chars (max %d)", len(got), max)
	}
	if !strings.HasPrefix(got, "LLM_TIMEOUT::xxx") {
		t.Fatalf("unexpected prefix: %q", got)
	}
}

func TestFormatChildFailure(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	got := FormatChildFailure(id, "notes", CodeLLMTimeout)
	want := "CHILD_FAILED::notes(6ba7b810-9dad-11d1-80b4-00c04fd430c8)::LLM_TIMEOUT"
	if got != want {
		t.Fatalf("want=%q got=%q", want, got)
	}
}
