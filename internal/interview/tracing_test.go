package interview

import (
	"context"
	"testing"

	"recruiting-pipeline/internal/common/pagestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestSubmitStage_RecordsSpan(t *testing.T) {
	sr, tp := newRecorder(t)
	store := pagestore.NewMemory()
	store.Put(appID, nil)
	engine := newEngine(t, store, WithTracerProvider(tp))

	_, err := engine.SubmitStage(context.Background(), appID, "hr", payload(t, 3, 4, 5))
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "interview.SubmitStage", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, appID, attrs["applicant.id"].AsString())
	assert.Equal(t, "hr", attrs["interview.stage"].AsString())
	assert.Equal(t, 4.0, attrs["interview.final_score"].AsFloat64())
	assert.Equal(t, int64(1), attrs["interview.stages_scored"].AsInt64())
}

func TestSubmitStage_SpanCarriesErrorCode(t *testing.T) {
	sr, tp := newRecorder(t)
	engine := newEngine(t, pagestore.NewMemory(), WithTracerProvider(tp))

	_, err := engine.SubmitStage(context.Background(), appID, "onsite", payload(t, 3))
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "INVALID_STAGE_TYPE", spans[0].Status().Description)
	assert.Equal(t, "INVALID_STAGE_TYPE", attrMap(spans[0].Attributes())["error.code"].AsString())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestPatchQuestionText_RecordsSpan(t *testing.T) {
	sr, tp := newRecorder(t)
	store, codec := seededStore(t)
	patcher := newPatcher(t, store, codec, WithPatchTracerProvider(tp))

	_, err := patcher.PatchQuestionText(context.Background(), appID, "technical", []string{"Q"})
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "interview.PatchQuestionText", spans[0].Name())
	assert.Equal(t, "STAGE_NOT_FOUND", spans[0].Status().Description)
	assert.Equal(t, "technical", attrMap(spans[0].Attributes())["interview.stage"].AsString())
}
