// Package tensor provides the named tensor values that flow from a trained
// parameter container through the policy adapter into the code emitter.
package tensor

// DataType identifies the element encoding of a tensor as stored in a
// parameter container. In-memory tensors always hold float32 values (the
// firmware target type); DataType records what the container held before
// conversion.
type DataType int

// Supported container element types.
const (
	Float32 DataType = iota
	Float64
	Float16
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	case Float16:
		return 2
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}
