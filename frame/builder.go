package frame

import "fmt"

// Builder assembles a Frame column by column. Values are copied on Add, so
// callers may reuse their slices. Build validates that all columns have the
// same length and that no name repeats.
//
// Example:
//
//	f, err := frame.NewBuilder().
//	    AddFloat("weight", []float64{1.5, 2.0, 0.8}).
//	    AddString("sex", []string{"female", "male", "female"}).
//	    Build()
type Builder struct {
	names []string
	cols  map[string]*column
}

// NewBuilder creates an empty frame builder.
func NewBuilder() *Builder {
	return &Builder{
		cols: make(map[string]*column),
	}
}

// AddFloat appends a numeric column. NaN entries mark missing values.
func (b *Builder) AddFloat(name string, values []float64) *Builder {
	floats := make([]float64, len(values))
	copy(floats, values)

	b.add(&column{name: name, numeric: true, floats: floats})

	return b
}

// AddString appends a categorical column. Empty strings mark missing values.
func (b *Builder) AddString(name string, values []string) *Builder {
	labels := make([]string, len(values))
	copy(labels, values)

	b.add(&column{name: name, labels: labels})

	return b
}

func (b *Builder) add(col *column) {
	// Duplicates are kept in names and rejected by Build, so the error
	// surfaces at the single fallible call site.
	if _, exists := b.cols[col.name]; !exists {
		b.cols[col.name] = col
	}
	b.names = append(b.names, col.name)
}

// Build validates the accumulated columns and returns the immutable Frame.
func (b *Builder) Build() (*Frame, error) {
	if len(b.names) == 0 {
		return nil, fmt.Errorf("frame: no columns added")
	}
	if len(b.names) != len(b.cols) {
		seen := make(map[string]struct{}, len(b.names))
		for _, name := range b.names {
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("frame: duplicate column %q", name)
			}
			seen[name] = struct{}{}
		}
	}

	n := -1
	for _, name := range b.names {
		col := b.cols[name]
		length := len(col.labels)
		if col.numeric {
			length = len(col.floats)
		}
		if n == -1 {
			n = length
		} else if length != n {
			return nil, fmt.Errorf("frame: column %q has %d rows, want %d", name, length, n)
		}
	}

	return &Frame{names: b.names, cols: b.cols, n: n}, nil
}
