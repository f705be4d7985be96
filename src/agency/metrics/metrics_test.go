package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/v1/missions/:id", 200, 12*time.Millisecond)
	RecordBreedLookup("ok", "cache")

	before := testutil.ToFloat64(assignments.WithLabelValues("busy"))
	RecordAssignment("busy")
	assert.Equal(t, before+1, testutil.ToFloat64(assignments.WithLabelValues("busy")))

	before = testutil.ToFloat64(missionTransitions.WithLabelValues("in_progress", "done"))
	RecordTransition("in_progress", "done")
	assert.Equal(t, before+1, testutil.ToFloat64(missionTransitions.WithLabelValues("in_progress", "done")))
}
