package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FaultKind
	}{
		{"timeout substring", errors.New("request timeout after 30s"), FaultTimeout},
		{"deadline wording without keyword", errors.New("context deadline exceeded"), FaultProviderError},
		{"rate limit substring", errors.New("429: rate limit exceeded"), FaultRateLimitExceeded},
		{"network substring", errors.New("network unreachable"), FaultNetworkError},
		{"mixed case", errors.New("Rate Limit reached"), FaultRateLimitExceeded},
		{"generic", errors.New("internal server error"), FaultProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fault := Classify(tt.err)
			assert.Equal(t, tt.want, fault.Kind)
			assert.True(t, fault.Recoverable)
			assert.Equal(t, tt.err.Error(), fault.Message)
		})
	}
}

func TestNewFault_Recoverability(t *testing.T) {
	assert.False(t, NewFault(FaultProviderNotFound, "x").Recoverable)
	for _, kind := range []FaultKind{
		FaultProviderNotConfigured, FaultProviderError,
		FaultRateLimitExceeded, FaultTimeout, FaultNetworkError,
	} {
		assert.True(t, NewFault(kind, "x").Recoverable, string(kind))
	}
}

func TestFault_Error(t *testing.T) {
	fault := NewFault(FaultTimeout, "backend took too long")
	assert.Equal(t, "timeout: backend took too long", fault.Error())
}

func TestStatisticsStore_SnapshotFilterAndAverages(t *testing.T) {
	store := NewStatisticsStore()
	store.RecordSuccess("a", 100, &Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	store.RecordFailure("a", 300)
	store.RecordSuccess("b", 50, nil)

	all := store.Snapshot("")
	assert.Len(t, all, 2)

	only := store.Snapshot("a")
	assert.Len(t, only, 1)
	assert.Equal(t, int64(2), only[0].RequestCount)
	assert.Equal(t, int64(3), only[0].TotalTokens)
	// Average is derived from cumulative duration over all requests.
	assert.EqualValues(t, 200, only[0].AverageDuration)

	assert.Empty(t, store.Snapshot("missing"))
}
