package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fjacquet/csv-ingest/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestMetrics_Handler(t *testing.T) {
	m := NewIngestMetrics()
	m.ObserveFile("Nubank", 150*time.Millisecond, nil)
	m.ObserveFile("Inter", time.Second, errors.New("no mapping"))

	report := models.NewIngestionReport("fatura.csv")
	report.Processed = 3
	report.Duplicates = 2
	report.AddError(4, errors.New("bad date"))
	m.ObserveReport(report)
	m.ObserveReport(nil)

	m.ObserveCategorization(models.TierKeyword, 2*time.Millisecond)
	m.ObserveCategorization(models.TierKeyword, 3*time.Millisecond)
	m.ObserveCategorization(models.TierDefault, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `csv_ingest_ingest_files_total{institution="Nubank",status="success"} 1`)
	assert.Contains(t, text, `csv_ingest_ingest_files_total{institution="Inter",status="error"} 1`)
	assert.Contains(t, text, `csv_ingest_ingest_rows_total{outcome="processed"} 3`)
	assert.Contains(t, text, `csv_ingest_ingest_rows_total{outcome="duplicate"} 2`)
	assert.Contains(t, text, `csv_ingest_ingest_rows_total{outcome="error"} 1`)
	assert.Contains(t, text, `csv_ingest_categorization_results_total{tier="keyword"} 2`)
	assert.Contains(t, text, `csv_ingest_categorization_duration_seconds_count{tier="default"} 1`)
}

func TestIngestMetrics_Gather(t *testing.T) {
	m := NewIngestMetrics()
	m.ObserveCategorization(models.TierCache, time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "csv_ingest_categorization_results_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "tier" {
					counts[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"cache": 1}, counts)
}

func TestIngestMetrics_WriteToTextfile(t *testing.T) {
	m := NewIngestMetrics()
	m.ObserveFile("Nubank", time.Second, nil)

	require.NoError(t, m.WriteToTextfile(""))

	path := filepath.Join(t.TempDir(), "csv_ingest.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "csv_ingest_ingest_files_total")

	err = m.WriteToTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
