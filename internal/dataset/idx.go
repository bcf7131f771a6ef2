package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// IDX magic numbers: two zero bytes, the element type (0x08 = unsigned byte)
// and the number of dimensions.
const (
	idxLabelMagic = 0x00000801
	idxImageMagic = 0x00000803
)

// Header limits. A corrupt header must not drive allocation.
const (
	maxIDXCount     = 1 << 28
	maxIDXImageSize = 1 << 16 // rows*cols
	maxIDXBytes     = math.MaxInt32
	idxReadChunk    = 1 << 20
)

// ErrInvalidIDX is returned for files that are not well-formed IDX data.
var ErrInvalidIDX = errors.New("invalid IDX file")

// openIDX opens path for reading, transparently decompressing ".gz" files.
func openIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open IDX file")
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "failed to open gzip stream %s", path)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadIDXImages reads an IDX3 image file.
//
// Format (big-endian):
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255), row-major
//
// Pixels are returned flattened: image i occupies pixels[i*rows*cols : (i+1)*rows*cols].
func ReadIDXImages(r io.Reader) (pixels []byte, count, rows, cols int, err error) {
	var hdr [4]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, 0, 0, 0, errors.Wrap(err, "failed to read image header")
	}
	if hdr[0] != idxImageMagic {
		return nil, 0, 0, 0, errors.Wrapf(ErrInvalidIDX, "image magic %#08x, want %#08x", hdr[0], idxImageMagic)
	}
	n, size := uint64(hdr[1]), uint64(hdr[2])*uint64(hdr[3])
	switch {
	case size == 0 || size > maxIDXImageSize:
		return nil, 0, 0, 0, errors.Wrapf(ErrInvalidIDX, "image size %dx%d", hdr[2], hdr[3])
	case n > maxIDXCount:
		return nil, 0, 0, 0, errors.Wrapf(ErrInvalidIDX, "image count %d exceeds %d", n, maxIDXCount)
	case n*size > maxIDXBytes:
		return nil, 0, 0, 0, errors.Wrapf(ErrInvalidIDX, "%d images of %d pixels exceed %d bytes", n, size, maxIDXBytes)
	}
	count, rows, cols = int(n), int(hdr[2]), int(hdr[3])

	pixels, err = readIDXBody(r, count*rows*cols)
	if err != nil {
		return nil, 0, 0, 0, errors.Wrapf(err, "failed to read %d images", count)
	}
	return pixels, count, rows, cols, nil
}

// ReadIDXLabels reads an IDX1 label file.
//
// Format (big-endian):
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes
func ReadIDXLabels(r io.Reader) ([]byte, error) {
	var hdr [2]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "failed to read label header")
	}
	if hdr[0] != idxLabelMagic {
		return nil, errors.Wrapf(ErrInvalidIDX, "label magic %#08x, want %#08x", hdr[0], idxLabelMagic)
	}

	if hdr[1] > maxIDXCount {
		return nil, errors.Wrapf(ErrInvalidIDX, "label count %d exceeds %d", hdr[1], maxIDXCount)
	}

	labels, err := readIDXBody(r, int(hdr[1]))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %d labels", hdr[1])
	}
	return labels, nil
}

// readIDXBody reads exactly n bytes, growing the buffer as data arrives so
// a header that overstates the payload fails on EOF instead of allocating.
func readIDXBody(r io.Reader, n int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, min(n, idxReadChunk)))
	if _, err := io.CopyN(buf, r, int64(n)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteIDXImages writes images in IDX3 format. len(pixels) must be count*rows*cols.
func WriteIDXImages(w io.Writer, pixels []byte, rows, cols int) error {
	size := rows * cols
	if size == 0 || len(pixels)%size != 0 {
		return errors.Wrapf(ErrInvalidIDX, "%d pixels do not fill %dx%d images", len(pixels), rows, cols)
	}
	hdr := [4]uint32{idxImageMagic, uint32(len(pixels) / size), uint32(rows), uint32(cols)}
	if err := binary.Write(w, binary.BigEndian, hdr); err != nil {
		return errors.Wrap(err, "failed to write image header")
	}
	_, err := w.Write(pixels)
	return errors.Wrap(err, "failed to write pixels")
}

// WriteIDXLabels writes labels in IDX1 format.
func WriteIDXLabels(w io.Writer, labels []byte) error {
	hdr := [2]uint32{idxLabelMagic, uint32(len(labels))}
	if err := binary.Write(w, binary.BigEndian, hdr); err != nil {
		return errors.Wrap(err, "failed to write label header")
	}
	_, err := w.Write(labels)
	return errors.Wrap(err, "failed to write labels")
}
