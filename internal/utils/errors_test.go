package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "test error message",
	}

	assert.Equal(t, "test error message", err.Error())
}

func TestValidationError_ErrorWithField(t *testing.T) {
	err := &ValidationError{Field: "entry_conditions", Message: "at least one entry condition is required"}

	assert.Equal(t, "entry_conditions: at least one entry condition is required", err.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("validation failed")

	assert.Error(t, err)
	assert.Equal(t, "validation failed", err.Error())

	validationErr, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, "validation failed", validationErr.Message)
}

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("stop loss %.1f%% must be below %d%%", 120.0, 100)

	assert.Error(t, err)
	assert.Equal(t, "stop loss 120.0% must be below 100%", err.Error())
}

func TestValidationErrors_Empty(t *testing.T) {
	var v ValidationErrors

	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err())
	assert.Empty(t, v.Fields())
}

func TestValidationErrors_CollectsAll(t *testing.T) {
	v := &ValidationErrors{}
	v.Add("entry_conditions", "at least one entry condition is required")
	v.Add("position_sizing.value", "percentage %v exceeds 100", 150)

	require.True(t, v.HasErrors())
	assert.Equal(t, []string{"entry_conditions", "position_sizing.value"}, v.Fields())
	assert.Contains(t, v.Error(), "validation failed (2)")
	assert.Contains(t, v.Error(), "percentage 150 exceeds 100")
}

func TestValidationErrors_ErrorsAs(t *testing.T) {
	v := &ValidationErrors{}
	v.Add("universe", "ticker %s is not part of the strategy universe", "MSFT")

	wrapped := fmt.Errorf("backtest rejected: %w", v.Err())

	var target *ValidationErrors
	require.True(t, errors.As(wrapped, &target))
	assert.Len(t, target.Errors, 1)
	assert.Equal(t, "universe", target.Errors[0].Field)
}

var errTestSentinel = errors.New("at least one entry condition is required")

func TestValidationErrors_ErrorsIsSentinel(t *testing.T) {
	v := &ValidationErrors{}
	v.Add("position_sizing.value", "percentage 150 exceeds 100")
	v.AddError("entry_conditions", errTestSentinel)

	err := fmt.Errorf("invalid strategy: %w", v.Err())

	assert.ErrorIs(t, err, errTestSentinel)
	assert.Contains(t, err.Error(), "entry_conditions: at least one entry condition is required")
}
