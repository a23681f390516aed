package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_SpacesCalls(t *testing.T) {
	now := time.Now()
	var slept []time.Duration

	p := NewPacer(time.Second)
	p.now = func() time.Time { return now }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	// First call goes through immediately
	require.NoError(t, p.Wait(context.Background()))
	assert.Empty(t, slept)

	// Second call at the same instant waits a full interval; third waits two
	require.NoError(t, p.Wait(context.Background()))
	require.NoError(t, p.Wait(context.Background()))
	require.Len(t, slept, 2)
	assert.Equal(t, time.Second, slept[0])
	assert.Equal(t, 2*time.Second, slept[1])
}

func TestPacer_NoWaitAfterQuietPeriod(t *testing.T) {
	now := time.Now()
	var slept []time.Duration

	p := NewPacer(time.Second)
	p.now = func() time.Time { return now }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	require.NoError(t, p.Wait(context.Background()))
	now = now.Add(5 * time.Second)
	require.NoError(t, p.Wait(context.Background()))
	assert.Empty(t, slept)
}

func TestPacer_DisabledAndNil(t *testing.T) {
	assert.NoError(t, NewPacer(0).Wait(context.Background()))

	var p *Pacer
	assert.NoError(t, p.Wait(context.Background()))
}

func TestPacer_HonorsContext(t *testing.T) {
	p := NewPacer(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)
}
