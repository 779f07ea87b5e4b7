// Package testutil provides common test assertions for bridge values and errors.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertValue compares two value trees and reports a diff on mismatch.
func AssertValue(t *testing.T, want, got value.Value, msgAndArgs ...interface{}) bool {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		return assert.Fail(t, "value mismatch (-want +got):\n"+diff, msgAndArgs...)
	}
	return true
}

// RequireErrorKind requires err to be a taxonomy error of kind carrying msg.
// An empty msg skips the message check.
func RequireErrorKind(t *testing.T, err error, kind errors.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, errors.KindOf(err), "error %q has kind %s", err, errors.KindOf(err))
	if msg != "" {
		require.Equal(t, msg, errors.Message(err))
	}
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
