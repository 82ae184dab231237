package gicerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfDirect(t *testing.T) {
	err := New(DependencyCycle, "depgraph", "cycle detected", nil, false, false)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, DependencyCycle, kind)
}

func TestKindOfWrapped(t *testing.T) {
	inner := New(HTTPTransport, "httpclient", "GET /x", nil, true, false)
	wrapped := fmt.Errorf("calling job: %w", inner)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, HTTPTransport, kind)
}

func TestKindOfNonGicerr(t *testing.T) {
	_, ok := KindOf(errors.New("plain error"))
	assert.False(t, ok)
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := New(HTTPTransport, "httpclient", "GET /x", cause, true, false)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "HttpTransport")
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(SinkFailure, "sink", "writing file", cause, false, true)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestRetryableAndSkippableFlags(t *testing.T) {
	err := New(RowInsertFailed, "sink", "insert failed", nil, false, true)
	assert.False(t, err.IsRetryable())
	assert.True(t, err.IsSkippable())
}
