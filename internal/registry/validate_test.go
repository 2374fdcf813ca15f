package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefinitionValidateRequiresCoreFields(t *testing.T) {
	err := Definition{}.Validate()
	require := assert.New(t)
	require.Error(err)

	ve, ok := err.(ValidationErrors)
	require.True(ok)
	require.NotEmpty(ve)
}

func TestDefinitionValidateAcceptsWellFormed(t *testing.T) {
	d := sampleDefinition("s1")
	assert.NoError(t, d.Validate())
}

func TestDefinitionValidateRejectsBadParameterRange(t *testing.T) {
	d := sampleDefinition("s1")
	d.ParameterRanges = map[string]ParameterRange{"lookback": {Min: 50, Max: 10, Step: 1}}
	assert.Error(t, d.Validate())
}

func TestRecordValidateRejectsUnknownLevel(t *testing.T) {
	rec := Record{SchemaVersion: SchemaVersion, ID: "s1", Level: "NOT_A_LEVEL", Definition: sampleDefinition("s1")}
	assert.Error(t, rec.Validate())
}

func TestRecordValidateRejectsUnsupportedSchema(t *testing.T) {
	rec := Record{SchemaVersion: "9.9", ID: "s1", Level: L0Incubate, Definition: sampleDefinition("s1")}
	assert.Error(t, rec.Validate())
}
