package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationID(t *testing.T) {
	ctx := EnsureCorrelationID(context.Background())
	id := ExtractCorrelationID(ctx)
	assert.Len(t, id, 36)

	again := EnsureCorrelationID(ctx)
	assert.Equal(t, id, ExtractCorrelationID(again))

	assert.Empty(t, ExtractCorrelationID(context.Background()))
}

func TestTrackStoreCall(t *testing.T) {
	before := testutil.CollectAndCount(StoreCallLatency)
	TrackStoreCall("test_store", "probe")()
	assert.GreaterOrEqual(t, testutil.CollectAndCount(StoreCallLatency), before)
}
