package container

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Write writes tensors to a SafeTensors container at path.
//
// Format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]
//
// Tensors are written in the given order with F32 elements; names must be
// unique. Used by tests and by the pack subcommand when assembling a
// container from loose weights.
func Write(path string, tensors []*NamedData, metadata map[string]string) error {
	header := make(map[string]interface{}, len(tensors)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var offset int64
	for _, tn := range tensors {
		if _, dup := header[tn.Name]; dup {
			return fmt.Errorf("duplicate tensor name %q", tn.Name)
		}
		size := int64(len(tn.Data) * 4)
		header[tn.Name] = TensorInfo{
			DType:       F32,
			Shape:       tn.Shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()

	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, 4)
	for _, tn := range tensors {
		for _, v := range tn.Data {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := file.Write(buf); err != nil {
				return fmt.Errorf("failed to write tensor %q: %w", tn.Name, err)
			}
		}
	}

	return file.Sync()
}

// NamedData is a tensor staged for writing.
type NamedData struct {
	Name  string
	Shape []int
	Data  []float32
}
