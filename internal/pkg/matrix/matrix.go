package matrix

import (
	"fmt"
	"math"
)

// Dense is a row-major matrix of float64 values.
type Dense struct {
	rows int
	cols int
	data []float64
}

func New(rows, cols int) *Dense {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimensions %dx%d", rows, cols))
	}
	return &Dense{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func NewFilled(rows, cols int, v float64) *Dense {
	m := New(rows, cols)
	for i := range m.data {
		m.data[i] = v
	}
	return m
}

// FromRows copies rows into a new matrix. All rows must have the same length.
func FromRows(rows [][]float64) *Dense {
	if len(rows) == 0 {
		return New(0, 0)
	}
	m := New(len(rows), len(rows[0]))
	for i, r := range rows {
		if len(r) != m.cols {
			panic(fmt.Sprintf("matrix: ragged row %d: got %d want %d", i, len(r), m.cols))
		}
		copy(m.data[i*m.cols:(i+1)*m.cols], r)
	}
	return m
}

func (m *Dense) Dims() (int, int) { return m.rows, m.cols }

func (m *Dense) At(i, j int) float64 { return m.data[i*m.cols+j] }

func (m *Dense) Set(i, j int, v float64) { m.data[i*m.cols+j] = v }

// Row returns row i backed by the matrix storage. Writes through it mutate m.
func (m *Dense) Row(i int) []float64 { return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols] }

// RowCopy returns a copy of row i.
func (m *Dense) RowCopy(i int) []float64 {
	out := make([]float64, m.cols)
	copy(out, m.Row(i))
	return out
}

func (m *Dense) Clone() *Dense {
	out := &Dense{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	copy(out.data, m.data)
	return out
}

// Apply returns a new matrix with fn applied to every element.
func (m *Dense) Apply(fn func(float64) float64) *Dense {
	out := &Dense{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	for i, v := range m.data {
		out.data[i] = fn(v)
	}
	return out
}

// Zip returns fn(m[i,j], o[i,j]) for every element. Dimensions must match.
func (m *Dense) Zip(o *Dense, fn func(a, b float64) float64) *Dense {
	mustSameDims(m, o)
	out := &Dense{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	for i := range m.data {
		out.data[i] = fn(m.data[i], o.data[i])
	}
	return out
}

// SelectRows returns a new matrix made of the given rows, in order.
func (m *Dense) SelectRows(idx []int) *Dense {
	out := New(len(idx), m.cols)
	for i, r := range idx {
		copy(out.Row(i), m.Row(r))
	}
	return out
}

// MulVec returns m·v, a vector with one entry per row.
func (m *Dense) MulVec(v []float64) []float64 {
	if len(v) != m.cols {
		panic(fmt.Sprintf("matrix: MulVec length %d, want %d", len(v), m.cols))
	}
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = Dot(m.Row(i), v)
	}
	return out
}

// VecMul returns v·m, a vector with one entry per column.
func VecMul(v []float64, m *Dense) []float64 {
	if len(v) != m.rows {
		panic(fmt.Sprintf("matrix: VecMul length %d, want %d", len(v), m.rows))
	}
	out := make([]float64, m.cols)
	for i, vi := range v {
		if vi == 0 {
			continue
		}
		row := m.Row(i)
		for j := range out {
			out[j] += vi * row[j]
		}
	}
	return out
}

// RowIsZero reports whether every entry of row i is zero.
func (m *Dense) RowIsZero(i int) bool {
	for _, v := range m.Row(i) {
		if v != 0 {
			return false
		}
	}
	return true
}

// HasNonFinite reports whether any entry is NaN or ±Inf.
func (m *Dense) HasNonFinite() bool {
	for _, v := range m.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("matrix: Dot lengths %d and %d", len(a), len(b)))
	}
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func mustSameDims(a, b *Dense) {
	if a.rows != b.rows || a.cols != b.cols {
		panic(fmt.Sprintf("matrix: dimension mismatch %dx%d vs %dx%d", a.rows, a.cols, b.rows, b.cols))
	}
}
