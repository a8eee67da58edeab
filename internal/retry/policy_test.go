package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assemble/internal/config"
	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
)

func TestFromConfigDefaultsAndClamping(t *testing.T) {
	p := FromConfig(config.RetryConfig{})
	assert.Equal(t, DefaultPolicy(), p)
	assert.Zero(t, p.MaxRetries)

	p = FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: 5 * time.Second, Max: 2 * time.Second, MaxRetries: 3})
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, config.RetryBackoffFixed, p.Mode)
	assert.Equal(t, 3, p.MaxRetries)

	p = FromConfig(config.RetryConfig{Backoff: "weird"})
	assert.Equal(t, config.RetryBackoffLinear, p.Mode)
}

func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name string
		p    Policy
		want []time.Duration
	}{
		{"fixed", Policy{Mode: config.RetryBackoffFixed, Initial: 100 * ms, Max: 500 * ms}, []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"linear", Policy{Mode: config.RetryBackoffLinear, Initial: 100 * ms, Max: 250 * ms}, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{"exponential", Policy{Mode: config.RetryBackoffExponential, Initial: 50 * ms, Max: 160 * ms}, []time.Duration{50 * ms, 100 * ms, 160 * ms, 160 * ms}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				assert.Equal(t, want, tt.p.Delay(i+1), "retry %d", i+1)
			}
			assert.Zero(t, tt.p.Delay(0))
			assert.Zero(t, tt.p.Delay(-1))
		})
	}
	huge := Policy{Mode: config.RetryBackoffExponential, Initial: time.Second, Max: time.Minute}
	assert.Equal(t, time.Minute, huge.Delay(64))
}

func TestValidate(t *testing.T) {
	require.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
	require.NoError(t, DefaultPolicy().Validate())
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3}
	calls := 0
	var retries []int
	err := p.Do(t.Context(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, func(n int, _ time.Duration, _ error) { retries = append(retries, n) })
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoGivesUp(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
	boom := errors.New("boom")
	calls := 0
	err := p.Do(t.Context(), func(context.Context) error { calls++; return boom }, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoSkipsPermanentErrors(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 5}
	calls := 0
	err := p.Do(t.Context(), func(context.Context) error { calls++; return aerrors.TaskNotFound("x") }, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Hour, Max: time.Hour, MaxRetries: 1}
	boom := errors.New("boom")
	err := p.Do(ctx, func(context.Context) error { cancel(); return boom }, nil)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, context.Canceled)
}
