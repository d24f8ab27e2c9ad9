// Package trainer is the offline batch job that turns a labeled CSV into model artifacts.
package trainer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/user/cropadvisor-go/artifacts"
	"github.com/user/cropadvisor-go/classifier"
	"github.com/user/cropadvisor-go/logging"
)

// LabelColumn names the target column of the training CSV.
const LabelColumn = "label"

// Dataset is a parsed training file.
type Dataset struct {
	X      *mat.Dense
	Labels []string
}

// Rows returns the number of samples.
func (d *Dataset) Rows() int { return len(d.Labels) }

// LoadDataset reads a training CSV. The feature columns and the label column must be
// present; other columns are ignored. Any malformed row fails the whole load.
func LoadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	featureIdx := make([]int, len(classifier.FeatureNames))
	for i, name := range classifier.FeatureNames {
		if featureIdx[i] = columnIndex(header, name); featureIdx[i] < 0 {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	labelIdx := columnIndex(header, LabelColumn)
	if labelIdx < 0 {
		return nil, fmt.Errorf("missing column %q", LabelColumn)
	}

	var (
		values []float64
		labels []string
	)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for i, c := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %q: %w", line, classifier.FeatureNames[i], err)
			}
			values = append(values, v)
		}
		label := strings.TrimSpace(rec[labelIdx])
		if label == "" {
			return nil, fmt.Errorf("line %d: empty label", line)
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return &Dataset{
		X:      mat.NewDense(len(labels), len(classifier.FeatureNames), values),
		Labels: labels,
	}, nil
}

// LoadDatasetFile opens and parses a training CSV.
func LoadDatasetFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	ds, err := LoadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// Train fits the encoder over exactly the labels present and grows the tree.
func Train(ds *Dataset, seed int64) (*classifier.DecisionTree, *classifier.LabelEncoder, error) {
	enc, err := classifier.FitLabelEncoder(ds.Labels)
	if err != nil {
		return nil, nil, err
	}
	y, err := enc.Transform(ds.Labels)
	if err != nil {
		return nil, nil, err
	}
	tree, err := classifier.Fit(ds.X, y, enc.Len(), classifier.Options{
		Seed:         seed,
		FeatureNames: classifier.FeatureNames,
	})
	if err != nil {
		return nil, nil, err
	}
	return tree, enc, nil
}

// Options configure a training run.
type Options struct {
	DataPath string
	Seed     int64
	Out      artifacts.Paths
}

// Run loads the dataset, trains, and installs the artifacts. Nothing is written unless
// every earlier step succeeded.
func Run(opts Options) error {
	log := logging.With("trainer")

	ds, err := LoadDatasetFile(opts.DataPath)
	if err != nil {
		return err
	}
	tree, enc, err := Train(ds, opts.Seed)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	tree.Info.Source = filepath.Base(opts.DataPath)
	tree.Info.TrainedAt = time.Now().UTC().Truncate(time.Second)

	log.Info().
		Int("rows", ds.Rows()).
		Int("crops", enc.Len()).
		Strs("classes", enc.Classes()).
		Msg("dataset loaded")

	y, err := enc.Transform(ds.Labels)
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	acc, err := tree.Score(ds.X, y)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	log.Info().
		Float64("training_accuracy", acc).
		Int("leaves", tree.NumLeaves()).
		Int("depth", tree.Depth()).
		Msg("model fitted")

	if err := artifacts.Save(opts.Out, tree, enc); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	log.Info().
		Str("model", opts.Out.Model).
		Str("encoder", opts.Out.Encoder).
		Msg("artifacts written")
	return nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}
