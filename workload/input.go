package workload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// InputSpec is the element list shared by every target of a run.
type InputSpec struct {
	Count    int
	Elements []int
}

// Validate reports an InputError when Count does not describe Elements.
func (s InputSpec) Validate() error {
	if s.Count < 0 {
		return &InputError{Reason: fmt.Sprintf("negative element count %d", s.Count)}
	}

	if s.Count != len(s.Elements) {
		return &InputError{
			Reason: fmt.Sprintf(
				"count %d does not match %d elements", s.Count, len(s.Elements),
			),
		}
	}

	return nil
}

// Layout selects how elements follow the count line.
type Layout string

const (
	// LayoutLines writes one element per line.
	LayoutLines Layout = "lines"
	// LayoutSpaces writes all elements on one space-separated line.
	LayoutSpaces Layout = "spaces"
)

// ParseLayout converts a flag or config value into a Layout.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case "", LayoutLines:
		return LayoutLines, nil
	case LayoutSpaces:
		return LayoutSpaces, nil
	default:
		return "", fmt.Errorf("unknown input layout %q (want lines or spaces)", s)
	}
}

// InputError reports a malformed count or element list.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// Encode writes spec to w: the decimal count on the first line, then the
// elements in the given layout.
func Encode(w io.Writer, spec InputSpec, layout Layout) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%d\n", spec.Count); err != nil {
		return fmt.Errorf("write count: %w", err)
	}

	sep := "\n"
	if layout == LayoutSpaces {
		sep = " "
	}

	for i, v := range spec.Elements {
		if i > 0 {
			bw.WriteString(sep)
		}
		bw.WriteString(strconv.Itoa(v))
	}

	if len(spec.Elements) > 0 {
		bw.WriteString("\n")
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write elements: %w", err)
	}

	return nil
}

// WriteInput serializes spec to path, replacing any existing file.
// Nothing is written when spec is invalid. The file is written next to
// path and renamed into place so readers never see a partial input.
func WriteInput(path string, spec InputSpec, layout Layout) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".sortbench-input-*")
	if err != nil {
		return fmt.Errorf("create temp input: %w", err)
	}

	// CreateTemp uses 0600; keep an existing file's mode, else 0644.
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("chmod temp input: %w", err)
	}

	if err := Encode(tmp, spec, layout); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("close temp input: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("replace input %s: %w", path, err)
	}

	return nil
}

// Decode reads an input in either layout.
func Decode(r io.Reader) (InputSpec, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return InputSpec{}, fmt.Errorf("read count: %w", err)
		}

		return InputSpec{}, &InputError{Reason: "missing element count"}
	}

	count, err := strconv.Atoi(sc.Text())
	if err != nil {
		return InputSpec{}, &InputError{
			Reason: fmt.Sprintf("element count %q is not an integer", sc.Text()),
		}
	}

	elements := make([]int, 0, max(count, 0))

	for sc.Scan() {
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return InputSpec{}, &InputError{
				Reason: fmt.Sprintf("element %q is not an integer", sc.Text()),
			}
		}
		elements = append(elements, v)
	}

	if err := sc.Err(); err != nil {
		return InputSpec{}, fmt.Errorf("read elements: %w", err)
	}

	spec := InputSpec{Count: count, Elements: elements}

	return spec, spec.Validate()
}

// ReadInput reads and validates an existing input file.
func ReadInput(path string) (InputSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return InputSpec{}, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// ParseElements parses a user supplied element list. Elements may be
// separated by whitespace or commas.
func ParseElements(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	elements := make([]int, 0, len(fields))

	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, &InputError{
				Reason: fmt.Sprintf("element %q is not an integer", f),
			}
		}
		elements = append(elements, v)
	}

	return elements, nil
}
