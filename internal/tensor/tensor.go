package tensor

import "fmt"

// Tensor is a named, shaped block of float32 values read from a trained
// policy. Tensors are immutable once constructed: Data returns the backing
// slice and callers must not modify it.
type Tensor struct {
	name  string
	shape Shape
	data  []float32
}

// New creates a Tensor, validating that the data length matches the shape.
func New(name string, shape Shape, data []float32) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("tensor %q: shape %v needs %d elements, got %d",
			name, shape, shape.NumElements(), len(data))
	}
	return &Tensor{
		name:  name,
		shape: shape.Clone(),
		data:  data,
	}, nil
}

// MustNew is New but panics on error. Intended for tests and literals.
func MustNew(name string, shape Shape, data []float32) *Tensor {
	t, err := New(name, shape, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the tensor name as recorded in the parameter container.
func (t *Tensor) Name() string {
	return t.name
}

// Shape returns the tensor shape. The returned slice must not be modified.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return t.shape.Rank()
}

// Data returns the flat row-major element slice. Must not be modified.
func (t *Tensor) Data() []float32 {
	return t.data
}

// At returns the element at row i, column j of a rank-2 tensor.
func (t *Tensor) At(i, j int) float32 {
	if t.Rank() != 2 {
		panic(fmt.Sprintf("At(i, j) on rank-%d tensor %q", t.Rank(), t.name))
	}
	return t.data[i*t.shape[1]+j]
}

// String summarizes the tensor for error messages and logs.
func (t *Tensor) String() string {
	return fmt.Sprintf("%s%s", t.name, t.shape)
}
