package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/tensor"
)

// BornReader reads tensors from a .born file.
// The file is fully decoded and verified when the reader is opened.
type BornReader struct {
	header Header
	flags  uint32
	data   []byte
	closed bool
}

// NewBornReader opens path, checks magic, version and checksum, and
// validates the header.
func NewBornReader(path string) (*BornReader, error) {
	//nolint:gosec // G304: model paths come from the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	r, err := newReader(file)
	if err != nil {
		return nil, errors.WithMessagef(err, "read %s", path)
	}
	return r, nil
}

// ReadFrom decodes a .born stream into a state dictionary.
func ReadFrom(reader io.Reader) (map[string]*tensor.Tensor, Header, error) {
	r, err := newReader(reader)
	if err != nil {
		return nil, Header{}, err
	}
	stateDict, err := r.ReadStateDict()
	return stateDict, r.header, err
}

func newReader(src io.Reader) (*BornReader, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(src, fixed); err != nil {
		return nil, errors.Wrap(err, "failed to read fixed header")
	}
	if !bytes.Equal(fixed[0:4], []byte(MagicBytes)) {
		return nil, errors.Wrapf(ErrInvalidMagic, "got %q", fixed[0:4])
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}

	r := &BornReader{flags: binary.LittleEndian.Uint32(fixed[8:12])}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [32]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(src, headerJSON); err != nil {
		return nil, errors.Wrap(err, "failed to read header JSON")
	}
	if err := json.Unmarshal(headerJSON, &r.header); err != nil {
		return nil, errors.Wrap(err, "failed to parse header JSON")
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	padding := alignedDataOffset(int64(headerSize)) - FixedHeaderSize - int64(headerSize)
	if _, err := io.CopyN(io.Discard, src, padding); err != nil {
		return nil, errors.Wrap(err, "failed to skip alignment padding")
	}

	var buf bytes.Buffer
	//nolint:gosec // G115: a data size beyond int64 fails the copy below
	if _, err := io.CopyN(&buf, src, int64(dataSize)); err != nil {
		return nil, errors.Wrap(err, "failed to read tensor data")
	}
	r.data = buf.Bytes()

	if err := ValidateChecksum(ComputeChecksum(r.data), stored); err != nil {
		return nil, err
	}
	if err := ValidateHeader(&r.header, int64(len(r.data))); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return r, nil
}

// Header returns the file header.
func (r *BornReader) Header() Header {
	return r.header
}

// Flags returns the format flags.
func (r *BornReader) Flags() uint32 {
	return r.flags
}

// Metadata returns the custom metadata.
func (r *BornReader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns the names of all stored tensors in file order.
func (r *BornReader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, t := range r.header.Tensors {
		names[i] = t.Name
	}
	return names
}

// TensorInfo returns the metadata of one tensor.
func (r *BornReader) TensorInfo(name string) (*TensorMeta, error) {
	for i := range r.header.Tensors {
		if r.header.Tensors[i].Name == name {
			return &r.header.Tensors[i], nil
		}
	}
	return nil, errors.Wrapf(ErrTensorNotFound, "%q", name)
}

// LoadTensor decodes a single tensor.
func (r *BornReader) LoadTensor(name string) (*tensor.Tensor, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	raw := r.data[meta.Offset : meta.Offset+meta.Size]
	values := make([]float64, len(raw)/bytesPerElement)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*bytesPerElement:]))
	}
	return tensor.FromSlice(values, tensor.Shape(meta.Shape))
}

// ReadStateDict decodes every tensor into a state dictionary.
func (r *BornReader) ReadStateDict() (map[string]*tensor.Tensor, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	stateDict := make(map[string]*tensor.Tensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		t, err := r.LoadTensor(meta.Name)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to load tensor %s", meta.Name)
		}
		stateDict[meta.Name] = t
	}
	return stateDict, nil
}

// Close releases the decoded data.
func (r *BornReader) Close() error {
	r.closed = true
	r.data = nil
	return nil
}
