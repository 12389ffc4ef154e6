package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })

	FeedbackSubmissions.WithLabelValues("created").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(FeedbackSubmissions.WithLabelValues("created")))

	n, err := testutil.GatherAndCount(reg, "portfolio_feedback_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Panics(t, func() { RegisterCollectors(reg) }, "collectors register once per registry")
}
