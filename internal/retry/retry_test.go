package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConflict = errors.New("Conflict on tuple deletion")

func isConflict(err error) bool { return errors.Is(err, errConflict) }

func fastConfig(n int) Config {
	return Config{MaxRetries: n, InitialBackoff: time.Millisecond}
}

func TestDo(t *testing.T) {
	errBroken := errors.New("constraint violated")

	tests := []struct {
		name      string
		failures  []error
		retries   int
		wantCalls int
		wantErr   error
	}{
		{name: "first call succeeds", retries: 3, wantCalls: 1},
		{name: "conflicts then success", failures: []error{errConflict, errConflict}, retries: 3, wantCalls: 3},
		{name: "conflicts exhaust attempts", failures: []error{errConflict, errConflict, errConflict}, retries: 3, wantCalls: 3, wantErr: errConflict},
		{name: "permanent error stops", failures: []error{errBroken}, retries: 3, wantCalls: 1, wantErr: errBroken},
		{name: "zero retries still calls once", retries: 0, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastConfig(tt.retries), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}, isConflict)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDo_ExhaustedMessage(t *testing.T) {
	err := Do(context.Background(), fastConfig(2), func() error { return errConflict }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxRetries: 5, InitialBackoff: time.Hour}

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return errConflict
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, backoff(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, backoff(cfg, 2))
	assert.Equal(t, 800*time.Millisecond, backoff(cfg, 4))

	cfg.MaxBackoff = 300 * time.Millisecond
	assert.Equal(t, 300*time.Millisecond, backoff(cfg, 4))

	cfg.MaxBackoff = 0
	cfg.Jitter = 0.5
	// 200ms + 200ms*0.5*2/5
	assert.Equal(t, 240*time.Millisecond, backoff(cfg, 2))
}
