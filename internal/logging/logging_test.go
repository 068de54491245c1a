package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerbosity(t *testing.T) {
	log, err := New(Config{Verbosity: DEBUG})
	require.NoError(t, err)
	assert.True(t, log.V(DEBUG).Enabled())
	assert.False(t, log.V(TRACE).Enabled())

	log, err = New(Config{})
	require.NoError(t, err)
	assert.True(t, log.Enabled())
	assert.False(t, log.V(DEBUG).Enabled())

	_, err = New(Config{Verbosity: -1})
	assert.Error(t, err)
}

func TestNewTestLogger(t *testing.T) {
	log := NewTestLogger()
	assert.True(t, log.V(TRACE).Enabled())
}

func TestContextRoundTrip(t *testing.T) {
	log := NewTestLogger().WithName("ctx")
	got := FromContext(IntoContext(context.Background(), log))
	assert.True(t, got.V(TRACE).Enabled())

	assert.False(t, FromContext(context.Background()).Enabled())
}
