package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes       = "BORN"
	FormatVersion    = 1
	HeaderAlignment  = 64   // tensor data starts on a 64-byte boundary
	FixedHeaderSize  = 64   // 0x40 bytes before the JSON header
	ChecksumSize     = 32   // SHA-256
	ChecksumOffset   = 0x20 // checksum position in the fixed header
	DTypeFloat64     = "float64"
	bytesPerElement  = 8
	defaultModelType = "Sequential"
)

// Flags for the .born format.
const (
	FlagHasOptimizer uint32 = 1 << 1 // optimizer state included
	FlagHasMetadata  uint32 = 1 << 2 // custom metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	Version        string            `json:"version"`    // library version that wrote the file
	ModelType      string            `json:"model_type"` // e.g. "Sequential"
	Architecture   string            `json:"architecture,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta contains training state information for checkpoints.
type CheckpointMeta struct {
	IsCheckpoint    bool           `json:"is_checkpoint"`
	Epoch           int            `json:"epoch"`
	Step            int64          `json:"step"`
	Loss            float64        `json:"loss"`
	OptimizerType   string         `json:"optimizer_type"`
	OptimizerConfig map[string]any `json:"optimizer_config"`
	TrainingMeta    map[string]any `json:"training_meta"`
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "0.weight"
	DType  string `json:"dtype"`  // always "float64"
	Shape  []int  `json:"shape"`  // empty for scalars
	Offset int64  `json:"offset"` // bytes from start of tensor data
	Size   int64  `json:"size"`   // bytes
}

// alignedDataOffset returns where tensor data begins for a JSON header of n bytes.
func alignedDataOffset(n int64) int64 {
	pos := int64(FixedHeaderSize) + n
	padding := (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
	return pos + padding
}
