package container

import (
	"encoding/json"
	"fmt"
	"os"
)

// WeightData is one named tensor in a JSON weight dump, the interchange
// form produced by training-side export scripts.
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// weightFile is the top-level JSON document.
type weightFile struct {
	Tensors []WeightData `json:"tensors"`
}

// ReadJSONWeights reads a JSON weight dump into container write order.
func ReadJSONWeights(path string) ([]*NamedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}

	var wf weightFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}
	if len(wf.Tensors) == 0 {
		return nil, fmt.Errorf("weights file %s holds no tensors", path)
	}

	out := make([]*NamedData, len(wf.Tensors))
	for i, wd := range wf.Tensors {
		n := 1
		for _, d := range wd.Shape {
			n *= d
		}
		if n != len(wd.Data) {
			return nil, fmt.Errorf("tensor %q: shape %v needs %d elements, got %d",
				wd.Name, wd.Shape, n, len(wd.Data))
		}
		out[i] = &NamedData{Name: wd.Name, Shape: wd.Shape, Data: wd.Data}
	}
	return out, nil
}

// Pack converts a JSON weight dump into a SafeTensors container.
func Pack(jsonPath, containerPath string) error {
	tensors, err := ReadJSONWeights(jsonPath)
	if err != nil {
		return err
	}
	return Write(containerPath, tensors, map[string]string{"source": "quadgen pack"})
}
