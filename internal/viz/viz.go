// Package viz renders an input image next to the predicted class
// probabilities as plain text.
package viz

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/backprop/internal/tensor"
)

// shades maps intensity in [0, 1] to characters, dark to bright.
const shades = " .:-=+*#%@"

const barWidth = 30

// Image renders a rows×cols image. Pixel values are rescaled to the image's
// own min/max range, so normalized and raw inputs look the same.
func Image(pixels []float64, rows, cols int) (string, error) {
	if rows*cols != len(pixels) || len(pixels) == 0 {
		return "", errors.Wrapf(tensor.ErrShapeMismatch, "%d pixels for a %dx%d image", len(pixels), rows, cols)
	}
	for i, v := range pixels {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", errors.Wrapf(tensor.ErrNumericalInstability, "pixel %d is %g", i, v)
		}
	}
	lo, hi := floats.Min(pixels), floats.Max(pixels)
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for _, v := range pixels[r*cols : (r+1)*cols] {
			level := int((v - lo) / span * float64(len(shades)-1))
			level = max(0, min(level, len(shades)-1))
			// Two characters per pixel keep the aspect ratio roughly square.
			sb.WriteByte(shades[level])
			sb.WriteByte(shades[level])
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Probabilities renders one horizontal bar per class.
func Probabilities(probs []float64) string {
	if len(probs) == 0 {
		return ""
	}
	best := floats.MaxIdx(probs)
	var sb strings.Builder
	for class, p := range probs {
		n := int(p*barWidth + 0.5)
		n = max(0, min(n, barWidth))
		marker := ' '
		if class == best {
			marker = '<'
		}
		fmt.Fprintf(&sb, "%2d |%-*s| %6.2f%% %c\n", class, barWidth, strings.Repeat("█", n), p*100, marker)
	}
	return sb.String()
}

// ViewClassify writes the image followed by the class probabilities and the
// predicted label. If label is non-negative it is shown as the true class.
func ViewClassify(w io.Writer, pixels []float64, rows, cols int, probs []float64, label int) error {
	if len(probs) == 0 {
		return errors.Wrap(tensor.ErrShapeMismatch, "no class probabilities")
	}
	img, err := Image(pixels, rows, cols)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(img)
	sb.WriteByte('\n')
	sb.WriteString(Probabilities(probs))
	fmt.Fprintf(&sb, "predicted: %d", floats.MaxIdx(probs))
	if label >= 0 {
		fmt.Fprintf(&sb, "  actual: %d", label)
	}
	sb.WriteByte('\n')

	_, err = io.WriteString(w, sb.String())
	return errors.Wrap(err, "failed to write view")
}
