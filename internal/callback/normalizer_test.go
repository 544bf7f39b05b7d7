package callback

import (
	"testing"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()

	n, err := NewNormalizer("=", DefaultFields())
	require.NoError(t, err)
	return n
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name    string
		payload string
		want    model.CallbackRecord
	}{
		{
			name:    "marker prefixed fields from the workflow",
			payload: `{"jobId":"=abc123","success":"=true","items":"=a, ,b,","itemCount":"=2"}`,
			want:    model.CallbackRecord{JobID: "abc123", Success: true, Items: []string{"a", "b"}, ItemCount: 2},
		},
		{
			name:    "only one marker is stripped",
			payload: `{"jobId":"==abc"}`,
			want:    model.CallbackRecord{JobID: "=abc", Items: []string{}},
		},
		{
			name:    "typed payload passes through",
			payload: `{"jobId":"abc","success":true,"items":["x","","y"],"itemCount":7}`,
			want:    model.CallbackRecord{JobID: "abc", Success: true, Items: []string{"x", "y"}, ItemCount: 7},
		},
		{
			name:    "item count defaults to items length",
			payload: `{"jobId":"abc","success":"true","items":"a,b,c"}`,
			want:    model.CallbackRecord{JobID: "abc", Success: true, Items: []string{"a", "b", "c"}, ItemCount: 3},
		},
		{
			name:    "non numeric item count falls back",
			payload: `{"jobId":"abc","success":"true","items":"a,b","itemCount":"many"}`,
			want:    model.CallbackRecord{JobID: "abc", Success: true, Items: []string{"a", "b"}, ItemCount: 2},
		},
		{
			name:    "negative item count falls back",
			payload: `{"jobId":"abc","items":"a","itemCount":-4}`,
			want:    model.CallbackRecord{JobID: "abc", Items: []string{"a"}, ItemCount: 1},
		},
		{
			name:    "malformed success degrades to false",
			payload: `{"jobId":"abc","success":"yes","items":{"a":1}}`,
			want:    model.CallbackRecord{JobID: "abc", Items: []string{}},
		},
		{
			name:    "string false",
			payload: `{"jobId":"abc","success":"=false","error":"=login required"}`,
			want:    model.CallbackRecord{JobID: "abc", Items: []string{}, ErrorDetail: "login required"},
		},
		{
			name:    "snake case aliases",
			payload: `{"job_id":"=abc","success":true,"item_count":"3"}`,
			want:    model.CallbackRecord{JobID: "abc", Success: true, Items: []string{}, ItemCount: 3},
		},
		{
			name:    "numeric job id keeps its digits",
			payload: `{"jobId":12345678901234567890}`,
			want:    model.CallbackRecord{JobID: "12345678901234567890", Items: []string{}},
		},
		{
			name:    "job id is not trimmed",
			payload: `{"jobId":" abc "}`,
			want:    model.CallbackRecord{JobID: " abc ", Items: []string{}},
		},
		{
			name:    "batched payload uses first object",
			payload: `[{"jobId":"=first","success":"=true"},{"jobId":"second"}]`,
			want:    model.CallbackRecord{JobID: "first", Success: true, Items: []string{}},
		},
		{
			name:    "non string array items are encoded",
			payload: `{"jobId":"abc","items":[1,true,{"u":"x"},null]}`,
			want:    model.CallbackRecord{JobID: "abc", Items: []string{"1", "true", `{"u":"x"}`}, ItemCount: 3},
		},
		{
			name:    "null job id alias falls through",
			payload: `{"jobId":null,"job_id":"abc"}`,
			want:    model.CallbackRecord{JobID: "abc", Items: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeMissingJobID(t *testing.T) {
	n := newTestNormalizer(t)

	payloads := map[string]string{
		"absent":         `{"success":"true"}`,
		"only marker":    `{"jobId":"="}`,
		"empty":          `{"jobId":""}`,
		"boolean":        `{"jobId":true}`,
		"object":         `{"jobId":{"id":"abc"}}`,
		"not json":       `jobId=abc`,
		"scalar payload": `"abc"`,
		"empty array":    `[]`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize([]byte(payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrMissingJobID)
			assert.ErrorIs(t, err, model.ErrInvalidCallback)
		})
	}
}

func TestNormalizeWithoutMarker(t *testing.T) {
	n, err := NewNormalizer("", DefaultFields())
	require.NoError(t, err)

	got, err := n.Normalize([]byte(`{"jobId":"=abc","success":"=true"}`))
	require.NoError(t, err)
	assert.Equal(t, "=abc", got.JobID)
	assert.False(t, got.Success)
}

func TestNormalizeNestedPaths(t *testing.T) {
	n, err := NewNormalizer("=", Fields{
		JobID:   []string{"$.body.jobId"},
		Success: []string{"$.body.success"},
		Items:   []string{"$.body.data.items"},
	})
	require.NoError(t, err)

	got, err := n.Normalize([]byte(`{"body":{"jobId":"=n1","success":"=true","data":{"items":"=p1,p2"}}}`))
	require.NoError(t, err)
	assert.Equal(t, model.CallbackRecord{JobID: "n1", Success: true, Items: []string{"p1", "p2"}, ItemCount: 2}, got)
}

func TestNewNormalizerValidation(t *testing.T) {
	_, err := NewNormalizer("=", Fields{})
	require.Error(t, err)

	_, err = NewNormalizer("=", Fields{JobID: []string{"jobId"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSONPath expression")
}

func TestNewNormalizerFromConfig(t *testing.T) {
	n, err := NewNormalizerFromConfig(config.CallbackConfig{
		Marker:     "~",
		JobIDPaths: []string{"$.id"},
		ItemsPaths: []string{"$.links"},
	})
	require.NoError(t, err)

	got, err := n.Normalize([]byte(`{"id":"~x","links":"~a,b"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", got.JobID)
	assert.Equal(t, []string{"a", "b"}, got.Items)
}

func TestCoerceCount(t *testing.T) {
	tests := []struct {
		in    interface{}
		want  int
		valid bool
	}{
		{"3", 3, true},
		{" =4 ", 0, false},
		{"=5", 5, true},
		{float64(2), 2, true},
		{float64(2.5), 0, false},
		{"NaN", 0, false},
		{"-1", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := coerceCount(tt.in, "=")
		assert.Equal(t, tt.valid, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
