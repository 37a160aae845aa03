// Package textclass implements the bag-of-words text classifier used to
// predict categories for transactions no detector could resolve.
package textclass

// Entry is one non-zero cell of a sparse row.
type Entry struct {
	Col int
	Val float64
}

// Row is a sparse feature vector with entries in ascending column order.
type Row []Entry

// Matrix is a row-major sparse matrix.
type Matrix struct {
	Rows []Row
	Cols int
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.Rows) }

// Slice returns rows [from, to) sharing the underlying storage.
func (m *Matrix) Slice(from, to int) *Matrix {
	return &Matrix{Rows: m.Rows[from:to], Cols: m.Cols}
}

// Dense expands row i into a dense slice.
func (m *Matrix) Dense(i int) []float64 {
	out := make([]float64, m.Cols)
	for _, e := range m.Rows[i] {
		out[e.Col] = e.Val
	}
	return out
}

// dot computes w . row for a dense weight vector.
func (r Row) dot(w []float64) float64 {
	var s float64
	for _, e := range r {
		s += w[e.Col] * e.Val
	}
	return s
}

// addScaled adds alpha * row into the dense vector dst.
func (r Row) addScaled(dst []float64, alpha float64) {
	for _, e := range r {
		dst[e.Col] += alpha * e.Val
	}
}
