package errors

import (
	"errors"
	"testing"
)

func TestAppErrorFormatting(t *testing.T) {
	plain := NewValidationError(CodeInvalidTime, "at_time_utc must be HH:MM")
	if plain.Error() != "invalid_time: at_time_utc must be HH:MM" {
		t.Errorf("unexpected message: %s", plain.Error())
	}

	cause := errors.New("connection refused")
	wrapped := NewInternalError("mongo unavailable", cause)
	if !errors.Is(wrapped, cause) {
		t.Error("expected wrapped cause reachable via errors.Is")
	}
}

func TestIsCode(t *testing.T) {
	err := NewConflictError("stale version")
	if !IsCode(err, CodeVersionConflict) {
		t.Error("expected version_conflict code match")
	}
	if IsCode(err, CodeMissingFields) {
		t.Error("expected mismatch for other code")
	}
	if IsCode(errors.New("plain"), CodeVersionConflict) {
		t.Error("expected false for non-AppError")
	}
	if IsCode(nil, CodeVersionConflict) {
		t.Error("expected false for nil")
	}
}
