package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quadgen-ml/quadgen/internal/tensor"
)

// preamble is the fixed head of every generated file: the firmware header
// plus the three activation helpers the control stack links against. Only
// tanhf is used by the generated loops; linear, sigmoid and relu are part
// of the published interface of network_evaluate.c and kept for callers.
const preamble = `#include <math.h>

#include "network_evaluate.h"

float linear(float num) {
	return num;
}

float sigmoid(float num) {
	return 1.0f / (1.0f + expf(-num));
}

float relu(float num) {
	return num > 0.0f ? num : 0.0f;
}

`

// Source is a generated translation unit. It is immutable once built;
// WriteFile is the only side effect.
type Source struct {
	Spec *NetworkSpec
	Text string
}

// Emit renders the network as C source. The output is a pure function of
// the spec: the same spec always yields byte-identical text.
//
// Block order is fixed because later blocks reference earlier ones by name:
// preamble, structure table, output buffers, weight arrays, bias arrays,
// evaluation routine.
func Emit(spec *NetworkSpec) *Source {
	var b strings.Builder

	b.WriteString(preamble)
	emitStructure(&b, spec)
	emitOutputBuffers(&b, spec)
	emitWeights(&b, spec)
	emitBiases(&b, spec)
	emitRoutine(&b, spec)

	return &Source{Spec: spec, Text: b.String()}
}

// Generate validates the canonical tensor list and emits in one step.
func Generate(tensors []*tensor.Tensor, opts Options) (*Source, error) {
	spec, err := BuildNetworkSpec(tensors, opts)
	if err != nil {
		return nil, err
	}
	return Emit(spec), nil
}

// floatLit renders a float32 as the shortest decimal literal that parses
// back to the identical bit pattern.
func floatLit(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// emitStructure writes the (in_dim, out_dim) table read by the loop bounds.
func emitStructure(b *strings.Builder, spec *NetworkSpec) {
	fmt.Fprintf(b, "static const int structure[%d][2] = {", spec.NumLayers())
	for i, row := range spec.Structure() {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(b, "{%d, %d}", row[0], row[1])
	}
	b.WriteString("};\n")
}

// emitOutputBuffers writes one mutable buffer per real layer, filled by the
// routine on every invocation.
func emitOutputBuffers(b *strings.Builder, spec *NetworkSpec) {
	for n, layer := range spec.Layers {
		fmt.Fprintf(b, "static float output_%d[%d];\n", n, layer.OutDim())
	}
}

// emitWeights writes one constant row-major 2-D array per layer weight.
func emitWeights(b *strings.Builder, spec *NetworkSpec) {
	for n, layer := range spec.Layers {
		in, out := layer.InDim(), layer.OutDim()
		fmt.Fprintf(b, "static const float layer_%d_weight[%d][%d] = {", n, in, out)
		for i := 0; i < in; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("{")
			for j := 0; j < out; j++ {
				if j > 0 {
					b.WriteString(",")
				}
				b.WriteString(floatLit(layer.Weight.At(i, j)))
			}
			b.WriteString("}")
		}
		b.WriteString("};\n")
	}
}

// emitBiases writes one constant 1-D array per layer bias.
func emitBiases(b *strings.Builder, spec *NetworkSpec) {
	for n, layer := range spec.Layers {
		fmt.Fprintf(b, "static const float layer_%d_bias[%d] = {", n, layer.OutDim())
		for i, v := range layer.Bias.Data() {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(floatLit(v))
		}
		b.WriteString("};\n")
	}
}

// emitRoutine writes the evaluation function: per layer an affine transform
// reading its bounds from the structure table, tanhf on every layer except
// the last, then the element-wise copy into the control vector.
func emitRoutine(b *strings.Builder, spec *NetworkSpec) {
	last := spec.NumLayers() - 1

	fmt.Fprintf(b, "\nvoid %s(float *state_array, float *control_n) {\n", spec.Opts.FuncName)
	for n := range spec.Layers {
		input := fmt.Sprintf("output_%d", n-1)
		if n == 0 {
			input = "state_array"
		}
		fmt.Fprintf(b, "	for (int i = 0; i < structure[%d][1]; i++) {\n", n)
		fmt.Fprintf(b, "		output_%d[i] = 0;\n", n)
		fmt.Fprintf(b, "		for (int j = 0; j < structure[%d][0]; j++) {\n", n)
		fmt.Fprintf(b, "			output_%d[i] += %s[j] * layer_%d_weight[j][i];\n", n, input, n)
		fmt.Fprintf(b, "		}\n")
		fmt.Fprintf(b, "		output_%d[i] += layer_%d_bias[i];\n", n, n)
		if n != last {
			fmt.Fprintf(b, "		output_%d[i] = tanhf(output_%d[i]);\n", n, n)
		}
		fmt.Fprintf(b, "	}\n")
	}
	for c := 0; c < spec.OutputDim(); c++ {
		fmt.Fprintf(b, "	control_n[%d] = output_%d[%d];\n", c, last, c)
	}
	b.WriteString("}\n")
}

// WriteFile persists the assembled text. The text is complete before the
// file is created, so a failed generation never leaves a partial file.
func (s *Source) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()

	if _, err := file.WriteString(s.Text); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Sync()
}
