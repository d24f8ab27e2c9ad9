// Package artifacts persists the trained classifier and label encoder, and loads them
// together with the crop table into the read-only context used while serving.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/classifier"
	"github.com/user/cropadvisor-go/cropinfo"
)

// Paths locates the artifact files.
type Paths struct {
	Model    string
	Encoder  string
	CropInfo string
}

// InferenceContext holds everything the recommendation handlers read. It is built once
// at startup and never mutated, so it is safe to share between requests without locks.
type InferenceContext struct {
	Model   *classifier.DecisionTree
	Encoder *classifier.LabelEncoder
	Crops   *cropinfo.Table
}

// NumClasses returns the number of crops the model can recommend.
func (c *InferenceContext) NumClasses() int { return c.Encoder.Len() }

// Load reads all three artifacts. Any missing or invalid file is an error; callers are
// expected to abort startup rather than serve with a partial context.
func Load(p Paths) (*InferenceContext, error) {
	model := new(classifier.DecisionTree)
	if err := readJSON(p.Model, model); err != nil {
		return nil, apperror.NewArtifactError("failed to load model", err)
	}
	encoder := new(classifier.LabelEncoder)
	if err := readJSON(p.Encoder, encoder); err != nil {
		return nil, apperror.NewArtifactError("failed to load label encoder", err)
	}
	if model.NumClasses != encoder.Len() {
		return nil, apperror.NewArtifactError(fmt.Sprintf(
			"model has %d classes but label encoder has %d", model.NumClasses, encoder.Len()), nil)
	}
	if model.NumFeatures != len(classifier.FeatureNames) {
		return nil, apperror.NewArtifactError(fmt.Sprintf(
			"model expects %d features, want %d", model.NumFeatures, len(classifier.FeatureNames)), nil)
	}
	crops, err := cropinfo.LoadFile(p.CropInfo)
	if err != nil {
		return nil, apperror.NewArtifactError("failed to load crop info", err)
	}
	return &InferenceContext{Model: model, Encoder: encoder, Crops: crops}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Save writes the model and encoder so that readers only ever see a complete pair.
// Both files are written to temporaries first; if anything fails before the renames the
// previous artifacts are untouched, and if the second rename fails the first is undone.
func Save(p Paths, model *classifier.DecisionTree, encoder *classifier.LabelEncoder) (err error) {
	if model.NumClasses != encoder.Len() {
		return fmt.Errorf("save artifacts: model has %d classes, encoder has %d", model.NumClasses, encoder.Len())
	}
	modelData, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	encoderData, err := json.MarshalIndent(encoder, "", "  ")
	if err != nil {
		return fmt.Errorf("encode label encoder: %w", err)
	}

	modelTmp, err := writeTemp(p.Model, modelData)
	if err != nil {
		return err
	}
	defer removeIfExists(modelTmp)
	encoderTmp, err := writeTemp(p.Encoder, encoderData)
	if err != nil {
		return err
	}
	defer removeIfExists(encoderTmp)

	backup, err := backupExisting(p.Model)
	if err != nil {
		return err
	}
	if err := os.Rename(modelTmp, p.Model); err != nil {
		removeIfExists(backup)
		return fmt.Errorf("install model: %w", err)
	}
	if err := os.Rename(encoderTmp, p.Encoder); err != nil {
		return errors.Join(fmt.Errorf("install label encoder: %w", err), restore(backup, p.Model))
	}
	removeIfExists(backup)
	return nil
}

func writeTemp(target string, data []byte) (string, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", target, err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, nil
}

// backupExisting hard-links the current file aside so a failed install can be undone.
// An empty name means there was nothing to keep.
func backupExisting(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	backup := path + ".bak"
	removeIfExists(backup)
	if err := os.Link(path, backup); err != nil {
		return "", fmt.Errorf("back up %s: %w", path, err)
	}
	return backup, nil
}

func restore(backup, path string) error {
	if backup == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("roll back %s: %w", path, err)
		}
		return nil
	}
	if err := os.Rename(backup, path); err != nil {
		return fmt.Errorf("roll back %s: %w", path, err)
	}
	return nil
}

func removeIfExists(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
