package variant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Envelope(t *testing.T) {
	data, err := Marshal(Int32(5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"int32","value":5}`, string(data))

	data, err = Marshal(Control{Code: EndDelay})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"control","value":"end_delay"}`, string(data))

	data, err = Marshal(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"invalid"}`, string(data))

	data, err = Marshal(MustMatrix(KindUint8, []int{1, 2}, []float64{3, 4}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"matrix","elem":"uint8","dims":[1,2],"data":[3,4]}`, string(data))
}

func TestMarshal_RejectsNonFinite(t *testing.T) {
	_, err := Marshal(Float64(math.NaN()))
	assert.Error(t, err)
	_, err = Marshal(Float32(float32(math.Inf(1))))
	assert.Error(t, err)
}

func TestUnmarshal_PreservesKind(t *testing.T) {
	values := []Variant{
		Bool(true),
		Int8(-3),
		Uint32(7),
		Int64(math.MaxInt64),
		Uint64(math.MaxUint64),
		Float32(0.5),
		Complex64(1 - 2i),
		String("<héllo>"),
		Control{Code: StartDelay},
		MustMatrix(KindFloat64, []int{2}, []float64{0.25, -1}),
	}
	for _, v := range values {
		data, err := Marshal(v)
		require.NoError(t, err)
		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.True(t, Equal(v, got), "%s: got %#v", v.Kind(), got)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	_, err := Unmarshal([]byte(`{"kind":"bogus"}`))
	assert.Error(t, err)
	_, err = Unmarshal([]byte(`{"kind":"int8","value":1,"extra":true}`))
	assert.Error(t, err, "unknown fields are rejected")
	_, err = Unmarshal([]byte(`{"kind":"control","value":"pause"}`))
	assert.Error(t, err)
	_, err = Unmarshal([]byte(`{"kind":"matrix","elem":"uint8","dims":[3],"data":[1]}`))
	assert.Error(t, err)
}
