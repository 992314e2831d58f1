package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSubmission(t *testing.T) {
	before := testutil.ToFloat64(Submissions.WithLabelValues("accepted"))
	RecordSubmission("accepted")
	assert.Equal(t, before+1, testutil.ToFloat64(Submissions.WithLabelValues("accepted")))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/messages", "200"))
	RecordHTTPRequest("GET", "/api/messages", 200, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/messages", "200")))
}

func TestRecordClassifierCall(t *testing.T) {
	before := testutil.ToFloat64(ClassifierCalls.WithLabelValues("ok"))
	RecordClassifierCall("ok", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ClassifierCalls.WithLabelValues("ok")))
}
