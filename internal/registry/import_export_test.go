package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportYAMLRoundTrips(t *testing.T) {
	rec := &Record{
		SchemaVersion: SchemaVersion,
		ID:            "s1",
		Name:          "breakout",
		Version:       "1.0.0",
		Level:         L1Backtest,
		Definition:    sampleDefinition("s1"),
	}

	data, err := Export(rec, DefaultExportOptions())
	require.NoError(t, err)

	got, err := Import(data, DefaultImportOptions())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Level, got.Level)
}

func TestExportImportJSONRoundTrips(t *testing.T) {
	rec := &Record{
		SchemaVersion: SchemaVersion,
		ID:            "s1",
		Name:          "breakout",
		Version:       "1.0.0",
		Level:         L1Backtest,
		Definition:    sampleDefinition("s1"),
	}

	data, err := Export(rec, ExportOptions{Format: FormatJSON, PrettyPrint: true})
	require.NoError(t, err)

	got, err := Import(data, DefaultImportOptions())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestImportRejectsInvalidDefinition(t *testing.T) {
	_, err := Import([]byte(`{"schema_version":"1.0","id":"s1","level":"L0_INCUBATE","definition":{"id":"s1"}}`), DefaultImportOptions())
	assert.Error(t, err)
}

func TestImportRejectsEmptyInput(t *testing.T) {
	_, err := Import(nil, DefaultImportOptions())
	assert.Error(t, err)
}
