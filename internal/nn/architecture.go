package nn

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/tensor"
)

// ErrInvalidArchitecture reports an architecture description that cannot be built.
var ErrInvalidArchitecture = errors.New("invalid architecture")

// Layer type names used in architecture descriptions.
const (
	LayerLinear     = "linear"
	LayerReLU       = "relu"
	LayerSigmoid    = "sigmoid"
	LayerLogSoftmax = "logsoftmax"
)

// Linear layer flags.
const (
	flagNoBias  = "nobias"
	InitKaiming = "kaiming"
)

// LayerSpec describes one layer of a feed-forward network.
//
// It decodes from YAML:
//
//	- {type: linear, in: 784, out: 128}
//	- {type: relu}
//	- {type: logsoftmax, dim: 1}
type LayerSpec struct {
	Type   string `yaml:"type"`
	In     int    `yaml:"in,omitempty"`
	Out    int    `yaml:"out,omitempty"`
	Dim    int    `yaml:"dim,omitempty"`
	NoBias bool   `yaml:"no_bias,omitempty"`
	Init   string `yaml:"init,omitempty"` // "" (Xavier) or "kaiming"
}

// String renders the layer in the compact form accepted by ParseArchitecture.
func (s LayerSpec) String() string {
	switch s.Type {
	case LayerLinear:
		out := fmt.Sprintf("linear(%d,%d", s.In, s.Out)
		if s.NoBias {
			out += "," + flagNoBias
		}
		if s.Init != "" {
			out += "," + s.Init
		}
		return out + ")"
	case LayerLogSoftmax:
		return fmt.Sprintf("logsoftmax(%d)", s.Dim)
	default:
		return s.Type
	}
}

// DefaultArchitecture returns the 784 → 128 → 64 → 10 digit classifier.
func DefaultArchitecture() []LayerSpec {
	return []LayerSpec{
		{Type: LayerLinear, In: 784, Out: 128},
		{Type: LayerReLU},
		{Type: LayerLinear, In: 128, Out: 64},
		{Type: LayerReLU},
		{Type: LayerLinear, In: 64, Out: 10},
		{Type: LayerLogSoftmax, Dim: 1},
	}
}

// FormatArchitecture joins specs into a comma-separated description.
func FormatArchitecture(specs []LayerSpec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// ParseArchitecture parses a description such as
//
//	linear(784,128),relu,linear(128,64),relu,linear(64,10),logsoftmax(1)
//
// Whitespace is ignored and type names are case-insensitive. logsoftmax
// without an argument normalises over dim 1.
func ParseArchitecture(desc string) ([]LayerSpec, error) {
	desc = strings.Join(strings.Fields(strings.ToLower(desc)), "")
	if desc == "" {
		return nil, errors.Wrap(ErrInvalidArchitecture, "empty description")
	}

	var specs []LayerSpec
	for _, item := range splitTopLevel(desc) {
		spec, err := parseLayer(item)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func parseLayer(item string) (LayerSpec, error) {
	name, args := item, []string(nil)
	if open := strings.IndexByte(item, '('); open >= 0 {
		if !strings.HasSuffix(item, ")") {
			return LayerSpec{}, errors.Wrapf(ErrInvalidArchitecture, "unbalanced parentheses in %q", item)
		}
		name = item[:open]
		if inner := item[open+1 : len(item)-1]; inner != "" {
			args = strings.Split(inner, ",")
		}
	}

	switch name {
	case LayerLinear:
		if len(args) < 2 || len(args) > 4 {
			return LayerSpec{}, errors.Wrapf(ErrInvalidArchitecture, "%q: linear takes (in,out[,nobias][,kaiming])", item)
		}
		in, err := positiveInt(args[0])
		if err != nil {
			return LayerSpec{}, errors.WithMessagef(err, "%q", item)
		}
		out, err := positiveInt(args[1])
		if err != nil {
			return LayerSpec{}, errors.WithMessagef(err, "%q", item)
		}
		spec := LayerSpec{Type: LayerLinear, In: in, Out: out}
		for _, flag := range args[2:] {
			switch {
			case flag == flagNoBias && !spec.NoBias:
				spec.NoBias = true
			case flag == InitKaiming && spec.Init == "":
				spec.Init = InitKaiming
			default:
				return LayerSpec{}, errors.Wrapf(ErrInvalidArchitecture, "%q: unknown or repeated linear flag %q", item, flag)
			}
		}
		return spec, nil

	case LayerReLU, LayerSigmoid:
		if len(args) != 0 {
			return LayerSpec{}, errors.Wrapf(ErrInvalidArchitecture, "%q takes no arguments", name)
		}
		return LayerSpec{Type: name}, nil

	case LayerLogSoftmax:
		switch len(args) {
		case 0:
			return LayerSpec{Type: LayerLogSoftmax, Dim: 1}, nil
		case 1:
			dim, err := strconv.Atoi(args[0])
			if err != nil {
				return LayerSpec{}, errors.Wrapf(ErrInvalidArchitecture, "%q: bad dim", item)
			}
			return LayerSpec{Type: LayerLogSoftmax, Dim: dim}, nil
		default:
			return LayerSpec{}, errors.Wrapf(ErrInvalidArchitecture, "%q: logsoftmax takes (dim)", item)
		}
	}

	return LayerSpec{}, errors.Wrapf(ErrInvalidArchitecture, "unknown layer %q", name)
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.Wrapf(ErrInvalidArchitecture, "expected a positive integer, got %q", s)
	}
	return n, nil
}

// Build constructs a Sequential from specs.
//
// Consecutive linear layers must agree on feature counts; a mismatch fails
// with tensor.ErrShapeMismatch before any weights are allocated.
func Build(specs []LayerSpec, rng *rand.Rand) (*Sequential, error) {
	if len(specs) == 0 {
		return nil, errors.Wrap(ErrInvalidArchitecture, "no layers")
	}

	features := 0
	for i, s := range specs {
		if s.Type != LayerLinear {
			continue
		}
		if s.In <= 0 || s.Out <= 0 {
			return nil, errors.Wrapf(ErrInvalidArchitecture, "layer %d: %s", i, s)
		}
		if s.Init != "" && s.Init != InitKaiming {
			return nil, errors.Wrapf(ErrInvalidArchitecture, "layer %d: unknown init %q", i, s.Init)
		}
		if features != 0 && s.In != features {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch,
				"layer %d: %s expects %d inputs but previous layer produces %d", i, s, s.In, features)
		}
		features = s.Out
	}

	model := NewSequential()
	for i, s := range specs {
		switch s.Type {
		case LayerLinear:
			var opts []LinearOption
			if s.NoBias {
				opts = append(opts, WithoutBias())
			}
			if s.Init == InitKaiming {
				opts = append(opts, WithKaimingInit())
			}
			model.Add(NewLinear(s.In, s.Out, rng, opts...))
		case LayerReLU:
			model.Add(NewReLU())
		case LayerSigmoid:
			model.Add(NewSigmoid())
		case LayerLogSoftmax:
			model.Add(NewLogSoftmax(s.Dim))
		default:
			return nil, errors.Wrapf(ErrInvalidArchitecture, "layer %d: unknown type %q", i, s.Type)
		}
	}
	return model, nil
}
