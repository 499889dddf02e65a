// Package container reads and writes the SafeTensors parameter containers
// that hold a trained policy's weights (conventionally params.safetensors,
// preserved unmodified next to the generated C source for provenance).
package container

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/x448/float16"

	"github.com/quadgen-ml/quadgen/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// maxHeaderSize bounds the JSON header; policy checkpoints are tiny, so a
// large header means a corrupt or hostile file.
const maxHeaderSize = 16 * 1024 * 1024

// DType represents supported SafeTensors data types.
type DType string

// Supported SafeTensors dtypes.
const (
	F16 DType = "F16"
	F32 DType = "F32"
	F64 DType = "F64"
)

// TensorInfo describes a tensor entry in the container header.
type TensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end), relative to data section
}

// header is the JSON header of a SafeTensors file. The __metadata__ key
// carries free-form strings; every other key names a tensor.
type header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

// UnmarshalJSON splits the flat SafeTensors header map into metadata and
// tensor entries.
func (h *header) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if metaRaw, ok := raw["__metadata__"]; ok {
		if err := json.Unmarshal(metaRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]TensorInfo, len(raw))
	for key, value := range raw {
		if key == "__metadata__" {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}

	return nil
}

// Reader reads tensors out of a SafeTensors parameter container.
type Reader struct {
	path       string
	file       *os.File
	header     header
	dataOffset int64 // Offset where tensor data starts
	dataSize   int64 // Size of the data section in bytes
}

// Open opens a parameter container and parses its header.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}

	r, err := newReader(file, path)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return r, nil
}

func newReader(file *os.File, path string) (*Reader, error) {
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var h header
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat container: %w", err)
	}
	dataOffset := int64(8 + headerSize) //nolint:gosec // G115: header size bounded above.

	r := &Reader{
		path:       path,
		file:       file,
		header:     h,
		dataOffset: dataOffset,
		dataSize:   stat.Size() - dataOffset,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// validate checks every tensor entry against the data section bounds.
func (r *Reader) validate() error {
	for name, info := range r.header.Tensors {
		start, end := info.DataOffsets[0], info.DataOffsets[1]
		if start < 0 || end < start {
			return &ValidationError{Path: r.path, Tensor: name,
				Details: fmt.Sprintf("%v: offsets [%d, %d)", ErrNegativeExtent, start, end)}
		}
		if end > r.dataSize {
			return &ValidationError{Path: r.path, Tensor: name,
				Details: fmt.Sprintf("%v: end %d > data size %d", ErrOutOfBounds, end, r.dataSize)}
		}
		shape := tensor.Shape(info.Shape)
		if err := shape.Validate(); err != nil {
			return &ValidationError{Path: r.path, Tensor: name, Details: err.Error()}
		}
		dt, err := dataType(info.DType)
		if err != nil {
			return &ValidationError{Path: r.path, Tensor: name, Details: err.Error()}
		}
		if want := int64(shape.NumElements() * dt.Size()); end-start != want {
			return &ValidationError{Path: r.path, Tensor: name,
				Details: fmt.Sprintf("shape %v needs %d bytes, entry holds %d", shape, want, end-start)}
		}
	}
	return nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Path returns the container file path.
func (r *Reader) Path() string {
	return r.path
}

// Metadata returns the free-form metadata map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns all tensor names in the container, sorted.
func (r *Reader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns header information about a named tensor.
func (r *Reader) TensorInfo(name string) (*TensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	return &info, nil
}

// readTensorData reads the raw bytes of a named tensor.
func (r *Reader) readTensorData(info *TensorInfo) ([]byte, error) {
	start := r.dataOffset + info.DataOffsets[0]
	size := info.DataOffsets[1] - info.DataOffsets[0]

	if _, err := r.file.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	return data, nil
}

// LoadTensor loads a named tensor, converting F64 and F16 elements down to
// float32 (the firmware element type).
func (r *Reader) LoadTensor(name string) (*tensor.Tensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	data, err := r.readTensorData(info)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}

	values, err := decodeElements(info.DType, data)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}
	return tensor.New(name, tensor.Shape(info.Shape), values)
}

// LoadAll loads every tensor in the container, in sorted name order.
func (r *Reader) LoadAll() ([]*tensor.Tensor, error) {
	names := r.TensorNames()
	tensors := make([]*tensor.Tensor, 0, len(names))
	for _, name := range names {
		tn, err := r.LoadTensor(name)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, tn)
	}
	return tensors, nil
}

// dataType converts a SafeTensors dtype to the tensor DataType.
func dataType(dt DType) (tensor.DataType, error) {
	switch dt {
	case F32:
		return tensor.Float32, nil
	case F64:
		return tensor.Float64, nil
	case F16:
		return tensor.Float16, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}

// decodeElements converts raw little-endian container bytes to float32.
func decodeElements(dt DType, data []byte) ([]float32, error) {
	switch dt {
	case F32:
		values := make([]float32, len(data)/4)
		for i := range values {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			values[i] = math.Float32frombits(bits)
		}
		return values, nil
	case F64:
		values := make([]float32, len(data)/8)
		for i := range values {
			bits := binary.LittleEndian.Uint64(data[i*8:])
			values[i] = float32(math.Float64frombits(bits))
		}
		return values, nil
	case F16:
		values := make([]float32, len(data)/2)
		for i := range values {
			bits := binary.LittleEndian.Uint16(data[i*2:])
			values[i] = float16.Frombits(bits).Float32()
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}
