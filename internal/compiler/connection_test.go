package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnection(t *testing.T) {
	tests := []struct {
		expr string
		want []Connection
	}{
		{
			expr: "src.output -> thr.image",
			want: []Connection{{From: Endpoint{"src", "output"}, To: Endpoint{"thr", "image"}}},
		},
		{
			expr: "src.output->thr.image,hist.image",
			want: []Connection{
				{From: Endpoint{"src", "output"}, To: Endpoint{"thr", "image"}},
				{From: Endpoint{"src", "output"}, To: Endpoint{"hist", "image"}},
			},
		},
		{
			expr: "  cam_1.frame ->\n\tsink_2.input  ",
			want: []Connection{{From: Endpoint{"cam_1", "frame"}, To: Endpoint{"sink_2", "input"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseConnection(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConnection_Invalid(t *testing.T) {
	for _, expr := range []string{
		"",
		"src.output",
		"src -> sink.input",
		"src.output -> ",
		"src.output -> sink.input,",
		"1src.output -> sink.input",
		"src.output <- sink.input",
	} {
		_, err := ParseConnection(expr)
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestConnection_String(t *testing.T) {
	c := Connection{From: Endpoint{"a", "out"}, To: Endpoint{"b", "in"}}
	assert.Equal(t, "a.out -> b.in", c.String())
}
