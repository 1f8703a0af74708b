package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "spans.txt")

	require.NoError(t, Init("toolflow", "0.0.1", fname))
	f := output
	require.NotNil(t, f)

	ctx, span := StartSpan(context.Background(), "workflow.run")
	span.WithAttributes(map[string]string{"workflow": "deploy_checklist"}).WithInt("steps", 5)
	_, child := StartSpan(ctx, "workflow.step")
	EndSpan(child, errors.New("boom"))
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workflow.run")
	assert.Contains(t, string(data), "deploy_checklist")
	assert.Contains(t, string(data), "boom")

	require.NoError(t, Shutdown(context.Background()))
	assert.Nil(t, output)
	_, err = f.WriteString("late")
	assert.ErrorIs(t, err, os.ErrClosed, "span file is closed on shutdown")
}

func TestEndSpan_Nil(t *testing.T) {
	var s *Span
	assert.Nil(t, s.WithAttributes(map[string]string{"k": "v"}))
	assert.NotPanics(t, func() { EndSpan(nil, nil) })
}
