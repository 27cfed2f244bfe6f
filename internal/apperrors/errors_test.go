package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidArgument, CodeOf(ErrInvalidRange))
	assert.Equal(t, CodeConflict, CodeOf(fmt.Errorf("booking: %w", ErrDatesUnavailable)))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("disk on fire")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestMessageOfHidesInternalCause(t *testing.T) {
	err := Internal("failed to create booking", errors.New("pq: connection refused"))

	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "dates unavailable", MessageOf(ErrDatesUnavailable))
}

func TestIsMatchesCodeAndMessage(t *testing.T) {
	err := Conflict("dates unavailable")
	assert.True(t, errors.Is(err, ErrDatesUnavailable))
	assert.False(t, errors.Is(Conflict("something else"), ErrDatesUnavailable))
	assert.True(t, errors.Is(Conflict("something else"), &AppError{Code: CodeConflict}))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(CodeFailedPrecondition, "cannot cancel", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cannot cancel: root", err.Error())
}
