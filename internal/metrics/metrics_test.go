package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CountersAndHandler(t *testing.T) {
	r := NewRegistry()
	r.CacheHit("model")
	r.CacheHit("model")
	r.CacheMiss("model")
	r.Rebuild("startup")
	r.StartStep("fit").Stop("ok")
	r.LetterWeight.WithLabelValues("regression").Set(0.306)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("model", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("model", "miss")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.StepDuration))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `routedash_letter_weight{strategy="regression"} 0.306`))
}

func TestRegistry_IndependentInstances(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.Rebuild("dismiss")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Rebuilds.WithLabelValues("dismiss")))
}

func TestRegistry_NilIsSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.CacheHit("model")
		r.CacheMiss("model")
		r.Rebuild("startup")
		r.StartStep("fit").Stop("ok")
	})
}
