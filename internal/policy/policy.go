// Package policy normalizes stored control policies into the canonical
// ordered tensor list consumed by the code emitter: weight matrix followed
// by bias vector, per layer, input to output.
//
// Two stored layouts are supported: containers whose tensor names group by
// layer ("hidden_0/kernel" + "hidden_0/bias", Flax style, or
// "hidden_0.weight" + "hidden_0.bias", Torch style), and in-process policy
// objects exposing an ordered parameter-list accessor.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/quadgen-ml/quadgen/internal/tensor"
)

// ErrMalformedPolicy reports a stored policy whose expected parameter
// fields are absent or unorderable.
var ErrMalformedPolicy = errors.New("malformed policy")

// MalformedPolicyError carries the layer and field that could not be
// resolved. It unwraps to ErrMalformedPolicy.
type MalformedPolicyError struct {
	Layer  string // Layer name, if one was identified
	Detail string
}

// Error implements the error interface.
func (e *MalformedPolicyError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("malformed policy: layer %q: %s", e.Layer, e.Detail)
	}
	return fmt.Sprintf("malformed policy: %s", e.Detail)
}

// Unwrap makes the error match ErrMalformedPolicy under errors.Is.
func (e *MalformedPolicyError) Unwrap() error {
	return ErrMalformedPolicy
}

// ParamSource is a policy object exposing its trained parameters in network
// order, weight before bias per layer.
type ParamSource interface {
	Params() []*tensor.Tensor
}

// FromSource returns the source's parameter list as the canonical tensor
// list. The adapter does not validate topology; that is the emitter's job.
func FromSource(src ParamSource) ([]*tensor.Tensor, error) {
	params := src.Params()
	if len(params) == 0 {
		return nil, &MalformedPolicyError{Detail: "parameter source returned no tensors"}
	}
	out := make([]*tensor.Tensor, len(params))
	copy(out, params)
	return out, nil
}

// layerGroup collects the kernel and bias of one named layer.
type layerGroup struct {
	name   string
	order  int
	kernel *tensor.Tensor
	bias   *tensor.Tensor
}

// FromTensors groups container tensors by layer name and returns the
// canonical ordered list. Layer order is the numeric suffix of the layer
// name (hidden_0, hidden_1, ...); a layer without a numeric suffix, or with
// a missing kernel or bias entry, is a malformed policy.
func FromTensors(tensors []*tensor.Tensor) ([]*tensor.Tensor, error) {
	groups := make(map[string]*layerGroup)

	for _, tn := range tensors {
		layer, role, err := splitName(tn.Name())
		if err != nil {
			return nil, err
		}
		g, ok := groups[layer]
		if !ok {
			order, err := layerOrder(layer)
			if err != nil {
				return nil, err
			}
			g = &layerGroup{name: layer, order: order}
			groups[layer] = g
		}
		switch role {
		case roleKernel:
			if g.kernel != nil {
				return nil, &MalformedPolicyError{Layer: layer, Detail: "duplicate kernel entry"}
			}
			g.kernel = tn
		case roleBias:
			if g.bias != nil {
				return nil, &MalformedPolicyError{Layer: layer, Detail: "duplicate bias entry"}
			}
			g.bias = tn
		}
	}

	if len(groups) == 0 {
		return nil, &MalformedPolicyError{Detail: "no layer parameters found"}
	}

	ordered := make([]*layerGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	out := make([]*tensor.Tensor, 0, 2*len(ordered))
	for _, g := range ordered {
		if g.kernel == nil {
			return nil, &MalformedPolicyError{Layer: g.name, Detail: "missing kernel entry"}
		}
		if g.bias == nil {
			return nil, &MalformedPolicyError{Layer: g.name, Detail: "missing bias entry"}
		}
		out = append(out, g.kernel, g.bias)
	}
	return out, nil
}

type role int

const (
	roleKernel role = iota
	roleBias
)

// splitName splits a container tensor name into layer name and role.
// Accepted forms: "<layer>/kernel", "<layer>/bias" (Flax) and
// "<layer>.weight", "<layer>.bias" (Torch).
func splitName(name string) (string, role, error) {
	for _, sep := range []string{"/", "."} {
		idx := strings.LastIndex(name, sep)
		if idx <= 0 || idx == len(name)-1 {
			continue
		}
		layer, suffix := name[:idx], name[idx+1:]
		switch suffix {
		case "kernel", "weight":
			return layer, roleKernel, nil
		case "bias":
			return layer, roleBias, nil
		}
	}
	return "", 0, &MalformedPolicyError{
		Detail: fmt.Sprintf("tensor %q is neither a kernel/weight nor a bias entry", name),
	}
}

// layerOrder extracts the trailing integer of a layer name ("hidden_3" -> 3).
func layerOrder(layer string) (int, error) {
	i := len(layer)
	for i > 0 && layer[i-1] >= '0' && layer[i-1] <= '9' {
		i--
	}
	if i == len(layer) {
		return 0, &MalformedPolicyError{Layer: layer, Detail: "layer name has no numeric suffix to order by"}
	}
	n, err := strconv.Atoi(layer[i:])
	if err != nil {
		return 0, &MalformedPolicyError{Layer: layer, Detail: "layer name has no numeric suffix to order by"}
	}
	return n, nil
}
