package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"recruiting-pipeline/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, registry.SaveRegistry(registry.Default(), path))

	n, err := validateRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, updateActivity(path, registry.TaskUpdateApplicantStatus, "retries", "5"))
	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	a, ok := reg.Lookup(registry.TaskUpdateApplicantStatus)
	require.True(t, ok)
	assert.Equal(t, 5, a.Retries)

	assert.Error(t, updateActivity(path, "missing", "status", "done"))
	assert.Error(t, updateActivity(path, registry.TaskUpdateApplicantStatus, "retries", "many"))
	assert.Error(t, updateActivity(path, registry.TaskUpdateApplicantStatus, "workflows", "x"))
}

func TestValidateRejectsMissingTaskType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	reg := registry.Default()
	reg.Activities = reg.Activities[:2]
	require.NoError(t, registry.SaveRegistry(reg, path))

	_, err := validateRegistry(path)
	assert.ErrorContains(t, err, registry.TaskUpdateApplicantStatus)
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)

	out := buf.String()
	assert.Equal(t, usage, out)
	for _, cmd := range []string{"export", "update", "validate", "help"} {
		assert.Contains(t, out, "  "+cmd)
	}
}
