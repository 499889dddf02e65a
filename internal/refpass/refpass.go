// Package refpass evaluates the reference forward pass of a validated
// network spec: affine transform plus tanh per hidden layer, linear final
// layer. It is the numeric oracle the emitter is checked against and backs
// the CLI --check flag.
package refpass

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quadgen-ml/quadgen/internal/codegen"
)

// Network holds the dense layer matrices of one policy.
type Network struct {
	weights []*mat.Dense // (in_dim, out_dim) per layer
	biases  []*mat.VecDense
}

// FromSpec builds the reference network from a validated spec.
func FromSpec(spec *codegen.NetworkSpec) *Network {
	n := &Network{
		weights: make([]*mat.Dense, spec.NumLayers()),
		biases:  make([]*mat.VecDense, spec.NumLayers()),
	}
	for i, layer := range spec.Layers {
		in, out := layer.InDim(), layer.OutDim()
		w := mat.NewDense(in, out, nil)
		for r := 0; r < in; r++ {
			for c := 0; c < out; c++ {
				w.Set(r, c, float64(layer.Weight.At(r, c)))
			}
		}
		b := mat.NewVecDense(out, nil)
		for c, v := range layer.Bias.Data() {
			b.SetVec(c, float64(v))
		}
		n.weights[i] = w
		n.biases[i] = b
	}
	return n
}

// InputDim returns the expected state vector length.
func (n *Network) InputDim() int {
	r, _ := n.weights[0].Dims()
	return r
}

// OutputDim returns the control vector length.
func (n *Network) OutputDim() int {
	_, c := n.weights[len(n.weights)-1].Dims()
	return c
}

// Evaluate runs the forward pass on a state vector and returns the control
// vector. Every layer except the last applies tanh element-wise.
func (n *Network) Evaluate(state []float64) ([]float64, error) {
	if len(state) != n.InputDim() {
		return nil, fmt.Errorf("state vector has %d elements, network expects %d", len(state), n.InputDim())
	}

	x := mat.NewVecDense(len(state), append([]float64(nil), state...))
	last := len(n.weights) - 1
	for i, w := range n.weights {
		_, out := w.Dims()
		y := mat.NewVecDense(out, nil)
		y.MulVec(w.T(), x)
		y.AddVec(y, n.biases[i])
		if i != last {
			for j := 0; j < out; j++ {
				y.SetVec(j, math.Tanh(y.AtVec(j)))
			}
		}
		x = y
	}

	out := make([]float64, x.Len())
	copy(out, x.RawVector().Data)
	return out, nil
}
