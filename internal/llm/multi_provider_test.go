package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name     string
	response string
	err      error
	calls    int
	closed   bool
}

func (f *fakeProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

func (f *fakeProvider) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{"provider": f.name, "model": f.name + "-model"}
}

func TestMultiProvider_FirstProviderAnswers(t *testing.T) {
	first := &fakeProvider{name: "first", response: "one"}
	second := &fakeProvider{name: "second", response: "two"}
	client := NewMultiProviderClientFrom([]Provider{first, second}, 3, zap.NewNop())

	out, err := client.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "one", out)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestMultiProvider_FallsThroughOnError(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("upstream 500")}
	second := &fakeProvider{name: "second", response: "two"}
	client := NewMultiProviderClientFrom([]Provider{first, second}, 3, zap.NewNop())

	out, err := client.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "two", out)

	// A single failure does not demote the preferred provider
	assert.Equal(t, 0, client.getCurrentIndex())
}

func TestMultiProvider_AllFail(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("boom")}
	second := &fakeProvider{name: "second", err: errors.New("bang")}
	client := NewMultiProviderClientFrom([]Provider{first, second}, 3, zap.NewNop())

	_, err := client.Complete(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllProvidersFailed))
	assert.Contains(t, err.Error(), "bang")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestMultiProvider_RateLimitDemotesImmediately(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("googleapi: Error 429: quota exceeded")}
	second := &fakeProvider{name: "second", response: "two"}
	client := NewMultiProviderClientFrom([]Provider{first, second}, 3, zap.NewNop())

	_, err := client.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, client.getCurrentIndex())

	_, err = client.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, first.calls, "demoted provider should not be tried first")
	assert.Equal(t, 2, second.calls)
}

func TestMultiProvider_DemotesAfterMaxFailures(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("timeout")}
	second := &fakeProvider{name: "second", response: "two"}
	client := NewMultiProviderClientFrom([]Provider{first, second}, 2, zap.NewNop())

	_, err := client.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, 0, client.getCurrentIndex())

	_, err = client.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, client.getCurrentIndex())

	info := client.GetProvidersInfo()
	require.Len(t, info, 2)
	assert.Equal(t, false, info[0]["is_current"])
	assert.Equal(t, 2, info[0]["failure_count"])
	assert.Equal(t, true, info[1]["is_current"])
}

func TestMultiProvider_CancelledContext(t *testing.T) {
	first := &fakeProvider{name: "first", response: "one"}
	client := NewMultiProviderClientFrom([]Provider{first}, 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "sys", "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, first.calls)
}

func TestMultiProvider_CloseClosesAll(t *testing.T) {
	first := &fakeProvider{name: "first"}
	second := &fakeProvider{name: "second"}
	client := NewMultiProviderClientFrom([]Provider{first, second}, 0, zap.NewNop())

	require.NoError(t, client.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.Equal(t, 3, client.maxFailures)
}

func TestRateLimitedProvider_FailsFastWhenBudgetSpent(t *testing.T) {
	inner := &fakeProvider{name: "inner", response: "ok"}
	limited := NewRateLimitedProvider(inner, 1, zap.NewNop())

	out, err := limited.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = limited.Complete(context.Background(), "sys", "prompt")
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, 1, inner.calls)
}

func TestNewMultiProviderClient_Validation(t *testing.T) {
	_, err := NewMultiProviderClient(MultiProviderConfig{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewMultiProviderClient(MultiProviderConfig{
		Providers: []ProviderConfig{{Type: "unknown", APIKey: "key"}},
	}, zap.NewNop())
	assert.Error(t, err)
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, isRateLimitError(nil))
	assert.True(t, isRateLimitError(ErrRateLimited))
	assert.True(t, isRateLimitError(errors.New("status 429 Too Many Requests")))
	assert.True(t, isRateLimitError(errors.New("Quota exceeded for model")))
	assert.False(t, isRateLimitError(errors.New("connection reset")))
}
