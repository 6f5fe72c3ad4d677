package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/ops"
)

func compileOne(t *testing.T, src string) *Pipeline {
	t.Helper()
	pipelines, err := CompileString("test.cue", src)
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	return pipelines[0]
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	p := compileOne(t, binarize)
	assert.Empty(t, Validate(p, ops.NewRegistry(nil)))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	p := compileOne(t, `
pipeline: broken: {
	operations: {
		src: {type: "value_source", properties: {value: 1, speed: 3}}
		thr: {type: "threshold", properties: absoluteThreshold: "high"}
		cam: type: "camera"
		sink: type: "collector"
	}
	connections: [
		"src.output -> sink.input",
		"thr.image -> sink.input",
		"src.frame -> thr.image",
		"src.output -> thr.mask",
		"ghost.output -> thr.image",
	]
}
`)
	errs := Validate(p, ops.NewRegistry(nil))
	assert.Equal(t, []string{
		ErrUnknownProperty,  // src.speed
		ErrInvalidProperty,  // thr.absoluteThreshold
		ErrUnknownType,      // cam
		ErrInputFedTwice,    // sink.input
		ErrUnknownOutput,    // src.frame
		ErrUnknownInput,     // thr.mask
		ErrUnknownOperation, // ghost
	}, codes(errs))
	for _, e := range errs {
		assert.Positive(t, e.Line, "%s has no line", e.Code)
	}
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "connections[0]", Message: "boom", Code: ErrUnknownInput}
	assert.Equal(t, "[E204] connections[0]: boom", e.Error())
	e.Line = 3
	assert.Equal(t, "[E204] line 3: connections[0]: boom", e.Error())
}
