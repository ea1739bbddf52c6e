package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewCatalog(reg)
	require.NoError(t, err)

	start := time.Now()
	m.Observe("list", start, nil)
	m.Observe("list", start, nil)
	m.Observe("add", start, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("list", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("add", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestCatalog_Seeded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewCatalog(reg)
	require.NoError(t, err)

	m.Seeded(5)
	m.Seeded(0)
	m.Seeded(-1)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.seeded))
}

func TestCatalog_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCatalog(reg)
	require.NoError(t, err)

	_, err = NewCatalog(reg)
	var are prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &are)
}

func TestCatalog_NilIsNoop(t *testing.T) {
	var m *Catalog
	assert.NotPanics(t, func() {
		m.Observe("list", time.Now(), nil)
		m.Seeded(3)
	})
}
