// Package codegen translates an ordered weight/bias tensor list into a
// self-contained C translation unit that evaluates the network forward pass
// with no library or heap dependencies, for use inside firmware control
// loops.
package codegen

import (
	"errors"
	"fmt"

	"github.com/quadgen-ml/quadgen/internal/tensor"
)

// ErrInvalidTopology reports a tensor list that does not describe a valid
// feed-forward network.
var ErrInvalidTopology = errors.New("invalid network topology")

// TopologyError carries the offending layer index. It unwraps to
// ErrInvalidTopology.
type TopologyError struct {
	Layer  int
	Reason string
}

// Error implements the error interface.
func (e *TopologyError) Error() string {
	return fmt.Sprintf("invalid network topology at layer %d: %s", e.Layer, e.Reason)
}

// Unwrap makes the error match ErrInvalidTopology under errors.Is.
func (e *TopologyError) Unwrap() error {
	return ErrInvalidTopology
}

// Options controls network interpretation and emission.
type Options struct {
	// HasTrailingStdLayer marks the final weight/bias pair as a Gaussian
	// policy standard-deviation head that must not appear in the emitted
	// evaluation routine. This is a convention of the training setup, not a
	// structural property, hence the flag.
	HasTrailingStdLayer bool

	// FuncName is the name of the emitted evaluation routine.
	FuncName string
}

// DefaultOptions matches the training pipeline's conventions.
func DefaultOptions() Options {
	return Options{
		HasTrailingStdLayer: true,
		FuncName:            "networkEvaluate",
	}
}

// Layer is one affine transform of the emitted network: weight shape
// (in_dim, out_dim), bias shape (out_dim).
type Layer struct {
	Weight *tensor.Tensor
	Bias   *tensor.Tensor
}

// InDim returns the layer input dimension.
func (l Layer) InDim() int {
	return l.Weight.Shape()[0]
}

// OutDim returns the layer output dimension.
func (l Layer) OutDim() int {
	return l.Weight.Shape()[1]
}

// NetworkSpec is a validated feed-forward network ready for emission. Only
// real layers are present; a trailing std head has already been stripped.
type NetworkSpec struct {
	Layers []Layer
	Opts   Options
}

// NumLayers returns the number of real layers.
func (s *NetworkSpec) NumLayers() int {
	return len(s.Layers)
}

// InputDim returns the state vector length the routine expects.
func (s *NetworkSpec) InputDim() int {
	return s.Layers[0].InDim()
}

// OutputDim returns the control vector length the routine fills.
func (s *NetworkSpec) OutputDim() int {
	return s.Layers[len(s.Layers)-1].OutDim()
}

// Structure returns the (in_dim, out_dim) table, one row per real layer.
// The emitted loops read their bounds from this table so array sizes and
// loop extents cannot diverge.
func (s *NetworkSpec) Structure() [][2]int {
	table := make([][2]int, len(s.Layers))
	for i, l := range s.Layers {
		table[i] = [2]int{l.InDim(), l.OutDim()}
	}
	return table
}

// BuildNetworkSpec validates the canonical tensor list (weight, bias,
// weight, bias, ...) and derives the NetworkSpec. Tensor 2k must be rank 2,
// tensor 2k+1 rank 1 with length equal to the weight's out_dim. With the
// trailing std head enabled, at least two bias tensors are required: one
// real layer plus the head to strip.
func BuildNetworkSpec(tensors []*tensor.Tensor, opts Options) (*NetworkSpec, error) {
	if opts.FuncName == "" {
		opts.FuncName = "networkEvaluate"
	}
	if len(tensors) == 0 {
		return nil, &TopologyError{Layer: 0, Reason: "no tensors"}
	}
	if len(tensors)%2 != 0 {
		return nil, &TopologyError{
			Layer:  len(tensors) / 2,
			Reason: fmt.Sprintf("odd tensor count %d; weights and biases must alternate", len(tensors)),
		}
	}

	pairs := len(tensors) / 2
	layers := make([]Layer, 0, pairs)
	for k := 0; k < pairs; k++ {
		weight, bias := tensors[2*k], tensors[2*k+1]
		if weight.Rank() != 2 {
			return nil, &TopologyError{
				Layer:  k,
				Reason: fmt.Sprintf("expected rank-2 weight, got %s of rank %d", weight, weight.Rank()),
			}
		}
		if bias.Rank() != 1 {
			return nil, &TopologyError{
				Layer:  k,
				Reason: fmt.Sprintf("expected rank-1 bias, got %s of rank %d", bias, bias.Rank()),
			}
		}
		if bias.Shape()[0] != weight.Shape()[1] {
			return nil, &TopologyError{
				Layer:  k,
				Reason: fmt.Sprintf("bias %s does not match weight %s out_dim", bias, weight),
			}
		}
		layers = append(layers, Layer{Weight: weight, Bias: bias})
	}

	if opts.HasTrailingStdLayer {
		if pairs < 2 {
			return nil, &TopologyError{
				Layer:  0,
				Reason: "need at least one real layer plus the trailing std head",
			}
		}
		layers = layers[:pairs-1]
	}

	// Real layers must chain: each layer consumes the previous layer's
	// output. The std head is exempt, which is why this runs after the strip.
	for n := 1; n < len(layers); n++ {
		if layers[n].InDim() != layers[n-1].OutDim() {
			return nil, &TopologyError{
				Layer:  n,
				Reason: fmt.Sprintf("in_dim %d does not match previous layer out_dim %d", layers[n].InDim(), layers[n-1].OutDim()),
			}
		}
	}

	return &NetworkSpec{Layers: layers, Opts: opts}, nil
}
