package api

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRegistrationError_Message(t *testing.T) {
	err := &RegistrationError{Tool: "add", ServerA: "math", ServerB: "calc"}
	msg := err.Error()
	for _, want := range []string{"add", "math", "calc"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestPathEscapeError_Message(t *testing.T) {
	err := &PathEscapeError{Path: "../../etc/passwd"}
	if !strings.Contains(err.Error(), "../../etc/passwd") {
		t.Errorf("error message %q missing offending path", err.Error())
	}
}

func TestReasoningEngineError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ReasoningEngineError{Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}

	var re *ReasoningEngineError
	wrapped := fmt.Errorf("turn failed: %w", err)
	if !errors.As(wrapped, &re) {
		t.Error("expected errors.As to find ReasoningEngineError through wrapping")
	}
}
