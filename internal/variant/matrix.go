package variant

import (
	"fmt"
	"slices"
)

// Matrix is an N-dimensional numeric array stored in row-major order.
//
// Element values are held as float64 but always converted to the element
// kind on the way in, so an int8 matrix never holds 300 or 1.5.
// 64-bit integer elements beyond 2^53 lose precision.
type Matrix struct {
	elem Kind
	dims []int
	data []float64
}

func (*Matrix) Kind() Kind { return KindMatrix }
func (*Matrix) variant()   {}

// NewMatrix validates and builds a matrix. data is copied and converted to
// elem; len(data) must equal the product of dims.
func NewMatrix(elem Kind, dims []int, data []float64) (*Matrix, error) {
	if !(elem.IsInteger() || elem.IsFloat()) {
		return nil, fmt.Errorf("matrix element kind %s is not a real numeric kind", elem)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("matrix needs at least one dimension")
	}
	n := 1
	for i, d := range dims {
		if d < 0 {
			return nil, fmt.Errorf("matrix dimension %d is negative: %d", i, d)
		}
		n *= d
	}
	if len(data) != n {
		return nil, fmt.Errorf("matrix data length %d does not match dims %v", len(data), dims)
	}
	m := &Matrix{
		elem: elem,
		dims: slices.Clone(dims),
		data: make([]float64, n),
	}
	for i, f := range data {
		m.data[i] = convertFloat(elem, f)
	}
	return m, nil
}

// MustMatrix is NewMatrix that panics on error. For tests and literals.
func MustMatrix(elem Kind, dims []int, data []float64) *Matrix {
	m, err := NewMatrix(elem, dims, data)
	if err != nil {
		panic(err)
	}
	return m
}

// Zeros returns a zero-filled matrix.
func Zeros(elem Kind, dims ...int) (*Matrix, error) {
	n := 1
	for _, d := range dims {
		n *= d
	}
	if n < 0 {
		n = 0
	}
	return NewMatrix(elem, dims, make([]float64, n))
}

// Elem returns the element kind.
func (m *Matrix) Elem() Kind { return m.elem }

// Dims returns a copy of the dimensions.
func (m *Matrix) Dims() []int { return slices.Clone(m.dims) }

// Len returns the total number of elements.
func (m *Matrix) Len() int { return len(m.data) }

// At returns the element at flat index i.
func (m *Matrix) At(i int) float64 { return m.data[i] }

// Set stores f at flat index i, converted to the element kind.
func (m *Matrix) Set(i int, f float64) { m.data[i] = convertFloat(m.elem, f) }

// Data returns a copy of the elements in row-major order.
func (m *Matrix) Data() []float64 { return slices.Clone(m.data) }

// ElementAt returns element i as a scalar variant of the element kind.
func (m *Matrix) ElementAt(i int) Variant {
	v, _ := FromFloat64(m.elem, m.data[i])
	return v
}

// Equal compares element kind, dimensions and data.
func (m *Matrix) Equal(o *Matrix) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.elem == o.elem && slices.Equal(m.dims, o.dims) && slices.Equal(m.data, o.data)
}

// ColorImage is an interleaved 8-bit image with 3 (RGB) or 4 (RGBA) channels.
type ColorImage struct {
	width    int
	height   int
	channels int
	pix      []byte
}

func (*ColorImage) Kind() Kind { return KindColorImage }
func (*ColorImage) variant()   {}

// NewColorImage validates and builds an image. pix is copied.
func NewColorImage(width, height, channels int, pix []byte) (*ColorImage, error) {
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("color image must have 3 or 4 channels, got %d", channels)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("color image size %dx%d is negative", width, height)
	}
	if len(pix) != width*height*channels {
		return nil, fmt.Errorf("color image pixel buffer is %d bytes, want %d", len(pix), width*height*channels)
	}
	return &ColorImage{
		width:    width,
		height:   height,
		channels: channels,
		pix:      slices.Clone(pix),
	}, nil
}

// Width returns the image width in pixels.
func (c *ColorImage) Width() int { return c.width }

// Height returns the image height in pixels.
func (c *ColorImage) Height() int { return c.height }

// Channels returns 3 or 4.
func (c *ColorImage) Channels() int { return c.channels }

// Pix returns a copy of the interleaved pixel buffer.
func (c *ColorImage) Pix() []byte { return slices.Clone(c.pix) }

// Gray converts the image to a uint8 luminance matrix (ITU-R 601 weights).
func (c *ColorImage) Gray() *Matrix {
	data := make([]float64, c.width*c.height)
	for i := range data {
		p := c.pix[i*c.channels:]
		data[i] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
	}
	m, _ := NewMatrix(KindUint8, []int{c.height, c.width}, data)
	return m
}

// Equal compares size, channel count and pixels.
func (c *ColorImage) Equal(o *ColorImage) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.width == o.width && c.height == o.height && c.channels == o.channels &&
		slices.Equal(c.pix, o.pix)
}
