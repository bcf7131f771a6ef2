package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/tensor"
)

// Version is the library version recorded in written headers.
const Version = "0.1.0"

// BornWriter writes state dictionaries to a .born file.
type BornWriter struct {
	file   *os.File
	closed bool
}

// NewBornWriter creates (or truncates) path for writing.
func NewBornWriter(path string) (*BornWriter, error) {
	//nolint:gosec // G304: the output path is chosen by the caller
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file")
	}
	return &BornWriter{file: file}, nil
}

// WriteStateDict writes every tensor of stateDict under header.
// Tensor metadata in header is recomputed; other fields are kept.
func (w *BornWriter) WriteStateDict(stateDict map[string]*tensor.Tensor, header Header) error {
	if w.closed {
		return ErrWriterClosed
	}
	return WriteTo(w.file, stateDict, header)
}

// Close closes the underlying file.
func (w *BornWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteFile writes stateDict to path in one call.
func WriteFile(path string, stateDict map[string]*tensor.Tensor, header Header) (err error) {
	w, err := NewBornWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return w.WriteStateDict(stateDict, header)
}

// WriteTo encodes stateDict in the .born format to writer.
// Tensors are stored in name order so identical inputs give identical bytes
// apart from the creation time.
func WriteTo(writer io.Writer, stateDict map[string]*tensor.Tensor, header Header) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	slices.Sort(names)

	header.FormatVersion = FormatVersion
	if header.Version == "" {
		header.Version = Version
	}
	if header.ModelType == "" {
		header.ModelType = defaultModelType
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}
	header.Tensors = make([]TensorMeta, 0, len(names))

	var data []byte
	for _, name := range names {
		t := stateDict[name]
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  DTypeFloat64,
			Shape:  []int(t.Shape().Clone()),
			Offset: int64(len(data)),
			Size:   int64(t.Size() * bytesPerElement),
		})
		for _, v := range t.Data() {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil && header.CheckpointMeta.OptimizerType != "" {
		flags |= FlagHasOptimizer
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	checksum := ComputeChecksum(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	padding := alignedDataOffset(int64(len(headerJSON))) - int64(FixedHeaderSize) - int64(len(headerJSON))

	for _, chunk := range [][]byte{fixed, headerJSON, make([]byte, padding), data} {
		if _, err := writer.Write(chunk); err != nil {
			return errors.Wrap(err, "failed to write .born data")
		}
	}
	return nil
}
