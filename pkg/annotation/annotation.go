// Package annotation reads and writes YOLO label files.
//
// Each line of a label file is one record, "class cx cy w h", separated by
// whitespace. In memory the record is held as a types.Label whose Tuple puts
// the geometry first and the class last; the class is moved back to the front
// only when a record is written.
package annotation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/menta2k/yolo-augment/pkg/types"
)

var (
	// ErrParse is returned for a malformed label line.
	ErrParse = errors.New("annotation: parse error")
	// ErrNotFound is returned when the label file does not exist.
	ErrNotFound = errors.New("annotation: label file not found")
)

const fieldsPerRecord = 5

// Load reads every record of the label file at path. An empty file yields
// an empty slice and no error.
func Load(fs afero.Fs, path string) ([]types.Label, error) {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	labels, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return labels, nil
}

// Read parses records from r until EOF. Blank lines are skipped.
func Read(r io.Reader) ([]types.Label, error) {
	labels := []types.Label{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		label, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}

// ParseLine parses a single "class cx cy w h" record. The class may be
// written as a float but must hold a non-negative integral value.
func ParseLine(line string) (types.Label, error) {
	fields := strings.Fields(line)
	if len(fields) != fieldsPerRecord {
		return types.Label{}, fmt.Errorf("%w: expected %d fields, got %d", ErrParse, fieldsPerRecord, len(fields))
	}

	var values [fieldsPerRecord]float64
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return types.Label{}, fmt.Errorf("%w: field %d %q is not a number", ErrParse, i+1, field)
		}
		values[i] = v
	}

	class := values[0]
	if class < 0 || class != math.Trunc(class) || class > math.MaxInt32 {
		return types.Label{}, fmt.Errorf("%w: class %q is not a non-negative integer", ErrParse, fields[0])
	}

	// geometry first, class appended last
	tuple := [fieldsPerRecord]float64{values[1], values[2], values[3], values[4], class}
	return FromTuple(tuple), nil
}

// FromTuple builds a label from its geometry-first, class-last form.
func FromTuple(t [5]float64) types.Label {
	return types.Label{
		Class: int(t[4]),
		Box:   types.Box{CX: t[0], CY: t[1], W: t[2], H: t[3]},
	}
}

// FormatLine renders a label as "class cx cy w h". Floats use the shortest
// representation that parses back to the same value.
func FormatLine(l types.Label) string {
	return strings.Join([]string{
		strconv.Itoa(l.Class),
		formatFloat(l.Box.CX),
		formatFloat(l.Box.CY),
		formatFloat(l.Box.W),
		formatFloat(l.Box.H),
	}, " ")
}

// Write emits one line per label.
func Write(w io.Writer, labels []types.Label) error {
	bw := bufio.NewWriter(w)
	for _, l := range labels {
		if _, err := bw.WriteString(FormatLine(l) + "\n"); err != nil {
			return fmt.Errorf("failed to write label: %w", err)
		}
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
