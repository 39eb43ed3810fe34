package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerError_Error(t *testing.T) {
	assert := assert.New(t)

	err := validationError("amount must be positive")
	assert.Equal("validation_error: amount must be positive", err.Error())

	wrapped := transientError("record movement failed after retries", errors.New("connection reset"))
	assert.Equal("transient_error: record movement failed after retries: connection reset", wrapped.Error())
}

func TestLedgerError_Unwrap(t *testing.T) {
	assert := assert.New(t)

	cause := errors.New("connection reset")
	err := transientError("gave up", cause)
	assert.True(errors.Is(err, cause))

	// Kind survives further wrapping up the call stack.
	outer := fmt.Errorf("record saving: %w", err)
	var lerr *LedgerError
	assert.True(errors.As(outer, &lerr))
	assert.Equal(KindTransient, lerr.Kind)
}
