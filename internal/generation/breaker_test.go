package generation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	// Two failures: still closed
	b.RecordFailure()
	b.RecordFailure()
	assert.NoError(t, b.Allow())

	// Third consecutive failure opens the circuit
	b.RecordFailure()
	err := b.Allow()
	require.Error(t, err)

	var open *CircuitOpenError
	require.True(t, errors.As(err, &open))
	assert.Greater(t, open.RetryAfter, time.Duration(0))
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.NoError(t, b.Allow())
}

func TestCircuitBreaker_SingleProbeAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewCircuitBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	require.Error(t, b.Allow())

	// Cooldown elapsed: exactly one probe admitted
	now = now.Add(time.Minute + time.Second)
	assert.NoError(t, b.Allow())
	require.Error(t, b.Allow(), "second call during probe must be rejected")

	// Successful probe closes the circuit
	b.RecordSuccess()
	assert.NoError(t, b.Allow())
	assert.NoError(t, b.Allow())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewCircuitBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow())

	b.RecordFailure()
	require.Error(t, b.Allow(), "failed probe must reopen the circuit")

	// A fresh cooldown applies from the failed probe
	now = now.Add(time.Minute + time.Second)
	assert.NoError(t, b.Allow())
}
