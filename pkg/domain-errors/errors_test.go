package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesTheChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "failed to read failure counter")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeUnavailable))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.Equal(t, "failed to read failure counter: connection refused", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "whatever"))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeValidation, "bad input")
	outer := fmt.Errorf("handling request: %w", inner)

	assert.True(t, HasCode(outer, CodeValidation))
	assert.False(t, HasCode(errors.New("plain"), CodeValidation))
	assert.False(t, HasCode(nil, CodeValidation))
}

func TestNewf(t *testing.T) {
	err := Newf(CodeConflict, "identifier %q already blocked", "user:u1")
	assert.Equal(t, `identifier "user:u1" already blocked`, err.Error())
	assert.True(t, HasCode(err, CodeConflict))
}
