package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/recipes/:id", "200"))
	RecordHTTPRequest("GET", "/api/recipes/:id", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/recipes/:id", "200"))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	RecordHTTPRequest("GET", "", 404, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestCounters(t *testing.T) {
	tests := []struct {
		name   string
		record func()
		read   func() float64
	}{
		{
			name:   "rate limit",
			record: func() { RecordRateLimitHit("/login") },
			read:   func() float64 { return testutil.ToFloat64(RateLimitHits.WithLabelValues("/login")) },
		},
		{
			name:   "auth failure",
			record: func() { RecordAuthFailure("bearer") },
			read:   func() float64 { return testutil.ToFloat64(AuthFailures.WithLabelValues("bearer")) },
		},
		{
			name:   "content write",
			record: func() { RecordContentWrite("rating", "upsert") },
			read:   func() float64 { return testutil.ToFloat64(ContentWrites.WithLabelValues("rating", "upsert")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.read()
			tt.record()
			assert.Equal(t, before+1, tt.read())
		})
	}
}
