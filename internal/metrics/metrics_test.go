package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.CollectAndCount(HTTPRequestDuration)
	RecordHTTPRequest("GET", "/api/activity/feed-test", 200, 15*time.Millisecond)

	if after := testutil.CollectAndCount(HTTPRequestDuration); after != before+1 {
		t.Errorf("expected one new series, got %d -> %d", before, after)
	}
}

func TestRewardOutcomesCounter(t *testing.T) {
	c := RewardOutcomes.WithLabelValues("received_like", "skipped")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}
