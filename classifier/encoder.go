package classifier

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// LabelEncoder is a fixed bijection between class indices and crop names.
// Classes are kept sorted, so index order is the byte order of the names.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// FitLabelEncoder builds an encoder over the distinct values of labels.
func FitLabelEncoder(labels []string) (*LabelEncoder, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("fit label encoder: no labels")
	}
	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	return NewLabelEncoder(classes)
}

// NewLabelEncoder builds an encoder from an already ordered class list, as read back
// from an artifact. Duplicate or empty names are rejected.
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label encoder: empty class list")
	}
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		if c == "" {
			return nil, fmt.Errorf("label encoder: empty class name at index %d", i)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("label encoder: duplicate class %q", c)
		}
		index[c] = i
	}
	return &LabelEncoder{classes: slices.Clone(classes), index: index}, nil
}

// Len returns the number of classes.
func (e *LabelEncoder) Len() int { return len(e.classes) }

// Classes returns a copy of the class names in index order.
func (e *LabelEncoder) Classes() []string { return slices.Clone(e.classes) }

// Encode maps a crop name to its index.
func (e *LabelEncoder) Encode(label string) (int, error) {
	i, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("label encoder: unknown label %q", label)
	}
	return i, nil
}

// Transform encodes every label.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, err := e.Encode(l)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Decode maps an index back to its crop name.
func (e *LabelEncoder) Decode(i int) (string, error) {
	if i < 0 || i >= len(e.classes) {
		return "", fmt.Errorf("label encoder: index %d out of range [0,%d)", i, len(e.classes))
	}
	return e.classes[i], nil
}

type encoderArtifact struct {
	Format  string   `json:"format"`
	Version int      `json:"version"`
	Classes []string `json:"classes"`
}

const (
	encoderFormat  = "cropadvisor/label-encoder"
	encoderVersion = 1
)

// MarshalJSON writes the artifact form of the encoder.
func (e *LabelEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(encoderArtifact{Format: encoderFormat, Version: encoderVersion, Classes: e.classes})
}

// UnmarshalJSON reads the artifact form and rebuilds the reverse index.
func (e *LabelEncoder) UnmarshalJSON(data []byte) error {
	var a encoderArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Format != encoderFormat {
		return fmt.Errorf("label encoder: unexpected format %q", a.Format)
	}
	if a.Version != encoderVersion {
		return fmt.Errorf("label encoder: unsupported version %d", a.Version)
	}
	dec, err := NewLabelEncoder(a.Classes)
	if err != nil {
		return err
	}
	*e = *dec
	return nil
}
