package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersionsOrdering(t *testing.T) {
	cmp, err := CompareVersions("1.0.0", "1.1.0")
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	cmp, err = CompareVersions("2.0.0", "1.1.0")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	cmp, err = CompareVersions("1.0.0", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)
}

func TestCompareVersionsRejectsInvalid(t *testing.T) {
	_, err := CompareVersions("not-a-version", "1.0.0")
	assert.Error(t, err)
}

func TestMigrateToLatestNoopWhenCurrent(t *testing.T) {
	rec := &Record{SchemaVersion: SchemaVersion}
	require.NoError(t, MigrateToLatest(rec))
	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
}
