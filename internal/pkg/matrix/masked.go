package matrix

import "math"

// Mask marks cells of a matrix as set or unset.
type Mask struct {
	rows int
	cols int
	bits []bool
}

func NewMask(rows, cols int) *Mask {
	return &Mask{rows: rows, cols: cols, bits: make([]bool, rows*cols)}
}

func (m *Mask) Dims() (int, int) { return m.rows, m.cols }

func (m *Mask) At(i, j int) bool { return m.bits[i*m.cols+j] }

func (m *Mask) Set(i, j int, v bool) { m.bits[i*m.cols+j] = v }

// Count returns the number of set cells.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Masked pairs a matrix with a validity mask. Values at invalid cells carry no meaning.
type Masked struct {
	Values *Dense
	Valid  *Mask
}

func NewMasked(rows, cols int) *Masked {
	return &Masked{Values: New(rows, cols), Valid: NewMask(rows, cols)}
}

func (m *Masked) Dims() (int, int) { return m.Values.Dims() }

// Invalidate marks cell (i, j) invalid.
func (m *Masked) Invalidate(i, j int) { m.Valid.Set(i, j, false) }

// WithNaN returns the values with every invalid cell set to NaN.
func (m *Masked) WithNaN() *Dense {
	out := m.Values.Clone()
	for i := range out.data {
		if !m.Valid.bits[i] {
			out.data[i] = math.NaN()
		}
	}
	return out
}

// Fill returns the values with every invalid cell taken from fallback.
func (m *Masked) Fill(fallback *Dense) *Dense {
	mustSameDims(m.Values, fallback)
	out := m.Values.Clone()
	for i := range out.data {
		if !m.Valid.bits[i] {
			out.data[i] = fallback.data[i]
		}
	}
	return out
}

