package codegen

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadgen-ml/quadgen/internal/tensor"
)

func weight(in, out int, values ...float32) *tensor.Tensor {
	data := make([]float32, in*out)
	copy(data, values)
	return tensor.MustNew("weight", tensor.Shape{in, out}, data)
}

func bias(out int, values ...float32) *tensor.Tensor {
	data := make([]float32, out)
	copy(data, values)
	return tensor.MustNew("bias", tensor.Shape{out}, data)
}

// policyTensors builds the canonical list for the given layer dims, with a
// trailing std head matching the final output dimension.
func policyTensors(dims ...int) []*tensor.Tensor {
	var out []*tensor.Tensor
	for i := 0; i+1 < len(dims); i++ {
		out = append(out, weight(dims[i], dims[i+1]), bias(dims[i+1]))
	}
	last := dims[len(dims)-1]
	out = append(out, weight(dims[len(dims)-2], last), bias(last)) // std head
	return out
}

func TestBuildNetworkSpecStructureTable(t *testing.T) {
	// 18 -> 64 -> 64 -> 4 network plus std head.
	spec, err := BuildNetworkSpec(policyTensors(18, 64, 64, 4), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, spec.NumLayers())
	assert.Equal(t, [][2]int{{18, 64}, {64, 64}, {64, 4}}, spec.Structure())
	assert.Equal(t, 18, spec.InputDim())
	assert.Equal(t, 4, spec.OutputDim())
}

func TestBuildNetworkSpecNoStdHead(t *testing.T) {
	tensors := []*tensor.Tensor{weight(4, 2), bias(2)}

	opts := DefaultOptions()
	opts.HasTrailingStdLayer = false
	spec, err := BuildNetworkSpec(tensors, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.NumLayers())
}

func TestBuildNetworkSpecMinimumNetwork(t *testing.T) {
	// Exactly 2 bias tensors: one real layer plus the std head.
	tensors := []*tensor.Tensor{
		weight(4, 2), bias(2),
		weight(4, 2), bias(2), // std head
	}

	spec, err := BuildNetworkSpec(tensors, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, spec.NumLayers())

	// A single real layer is the output layer: linear, no tanh.
	src := Emit(spec)
	assert.NotContains(t, src.Text, "tanhf")
}

func TestBuildNetworkSpecRejectsSinglePair(t *testing.T) {
	tensors := []*tensor.Tensor{weight(4, 2), bias(2)}

	_, err := BuildNetworkSpec(tensors, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTopology)
	assert.Contains(t, err.Error(), "std head")
}

func TestBuildNetworkSpecRejectsOddCount(t *testing.T) {
	tensors := []*tensor.Tensor{
		weight(4, 2), bias(2),
		weight(2, 1),
	}

	_, err := BuildNetworkSpec(tensors, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidTopology)
}

func TestBuildNetworkSpecRejectsWeightAfterWeight(t *testing.T) {
	tensors := []*tensor.Tensor{
		weight(4, 2), weight(2, 1),
		weight(2, 1), bias(1),
	}

	_, err := BuildNetworkSpec(tensors, DefaultOptions())
	require.Error(t, err)

	var terr *TopologyError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 0, terr.Layer)
	assert.Contains(t, terr.Reason, "rank-1 bias")
}

func TestBuildNetworkSpecRejectsBiasMismatch(t *testing.T) {
	tensors := []*tensor.Tensor{
		weight(4, 2), bias(3),
		weight(2, 1), bias(1),
	}

	_, err := BuildNetworkSpec(tensors, DefaultOptions())
	require.Error(t, err)

	var terr *TopologyError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 0, terr.Layer)
}

func TestBuildNetworkSpecRejectsBrokenChain(t *testing.T) {
	// Layer 1 expects 3 inputs but layer 0 produces 2.
	tensors := []*tensor.Tensor{
		weight(4, 2), bias(2),
		weight(3, 1), bias(1),
		weight(3, 1), bias(1), // std head
	}

	_, err := BuildNetworkSpec(tensors, DefaultOptions())
	require.Error(t, err)

	var terr *TopologyError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 1, terr.Layer)
}

func TestBuildNetworkSpecRejectsEmpty(t *testing.T) {
	_, err := BuildNetworkSpec(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidTopology)
}

func TestEmitIdempotent(t *testing.T) {
	tensors := policyTensors(6, 8, 3)

	first, err := Generate(tensors, DefaultOptions())
	require.NoError(t, err)
	second, err := Generate(tensors, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
}

func TestEmitBlockOrder(t *testing.T) {
	src, err := Generate(policyTensors(6, 8, 3), DefaultOptions())
	require.NoError(t, err)

	// Declaration before use: preamble, structure, buffers, weights,
	// biases, routine.
	order := []string{
		`#include "network_evaluate.h"`,
		"static const int structure[2][2]",
		"static float output_0[8];",
		"static float output_1[3];",
		"static const float layer_0_weight[6][8]",
		"static const float layer_1_weight[8][3]",
		"static const float layer_0_bias[8]",
		"static const float layer_1_bias[3]",
		"void networkEvaluate(float *state_array, float *control_n)",
	}
	pos := -1
	for _, marker := range order {
		idx := strings.Index(src.Text, marker)
		require.NotEqual(t, -1, idx, "missing %q", marker)
		assert.Greater(t, idx, pos, "%q out of order", marker)
		pos = idx
	}
}

func TestEmitConcreteScenario(t *testing.T) {
	// Zero weights, biases [1, 2] then [0.5]: with a zero state vector the
	// hidden output is tanh([1, 2]) and the linear output layer yields 0.5
	// regardless, so control_n = [0.5].
	tensors := []*tensor.Tensor{
		weight(2, 2), bias(2, 1.0, 2.0),
		weight(2, 1), bias(1, 0.5),
	}

	opts := DefaultOptions()
	opts.HasTrailingStdLayer = false
	src, err := Generate(tensors, opts)
	require.NoError(t, err)

	assert.Contains(t, src.Text, "static const int structure[2][2] = {{2, 2},{2, 1}};")
	assert.Contains(t, src.Text, "static const float layer_0_weight[2][2] = {{0,0},{0,0}};")
	assert.Contains(t, src.Text, "static const float layer_0_bias[2] = {1,2};")
	assert.Contains(t, src.Text, "static const float layer_1_bias[1] = {0.5};")

	// Hidden layer gets tanhf, output layer stays linear.
	assert.Contains(t, src.Text, "output_0[i] = tanhf(output_0[i]);")
	assert.NotContains(t, src.Text, "output_1[i] = tanhf")
	assert.Contains(t, src.Text, "control_n[0] = output_1[0];")
	assert.NotContains(t, src.Text, "control_n[1]")
}

func TestEmitLoopBoundsUseStructureTable(t *testing.T) {
	src, err := Generate(policyTensors(6, 8, 3), DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, src.Text, "for (int i = 0; i < structure[0][1]; i++)")
	assert.Contains(t, src.Text, "for (int j = 0; j < structure[1][0]; j++)")
	// No literal loop bound may bypass the table.
	assert.NotContains(t, src.Text, "for (int i = 0; i < 8;")
	assert.NotContains(t, src.Text, "for (int j = 0; j < 6;")
}

func TestEmitLayerInputWiring(t *testing.T) {
	src, err := Generate(policyTensors(6, 8, 8, 3), DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, src.Text, "output_0[i] += state_array[j] * layer_0_weight[j][i];")
	assert.Contains(t, src.Text, "output_1[i] += output_0[j] * layer_1_weight[j][i];")
	assert.Contains(t, src.Text, "output_2[i] += output_1[j] * layer_2_weight[j][i];")
}

func TestEmitCustomFuncName(t *testing.T) {
	opts := DefaultOptions()
	opts.FuncName = "policyForward"

	src, err := Generate(policyTensors(4, 2), opts)
	require.NoError(t, err)
	assert.Contains(t, src.Text, "void policyForward(float *state_array, float *control_n)")
}

func TestFloatLitRoundTrip(t *testing.T) {
	values := []float32{
		0, 1, -1, 0.5, 0.1, 2.0 / 3.0,
		float32(math.Pi), 1e-7, -1e-8, 3.4e38, 1.1754944e-38,
		float32(math.SmallestNonzeroFloat32),
	}

	for _, v := range values {
		lit := floatLit(v)
		parsed, err := strconv.ParseFloat(lit, 32)
		require.NoError(t, err, "literal %q", lit)
		assert.Equal(t, v, float32(parsed), "literal %q does not round-trip", lit)
	}
}

func TestFloatLitShortest(t *testing.T) {
	assert.Equal(t, "0.1", floatLit(0.1))
	assert.Equal(t, "0.33333334", floatLit(1.0/3.0))
	assert.Equal(t, "0", floatLit(0))
}

func TestWriteFileCreatesParentDirs(t *testing.T) {
	src, err := Generate(policyTensors(4, 2), DefaultOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "deep", "nested", "network_evaluate.c")
	require.NoError(t, src.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src.Text, string(data))
}

func TestGenerateFailureProducesNothing(t *testing.T) {
	src, err := Generate([]*tensor.Tensor{weight(4, 2)}, DefaultOptions())
	assert.Nil(t, src)
	assert.ErrorIs(t, err, ErrInvalidTopology)
}
