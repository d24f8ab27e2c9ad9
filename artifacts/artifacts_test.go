package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/classifier"
)

func fitted(t *testing.T, labels ...string) (*classifier.DecisionTree, *classifier.LabelEncoder) {
	t.Helper()
	enc, err := classifier.FitLabelEncoder(labels)
	require.NoError(t, err)

	n := len(labels)
	data := make([]float64, 0, n*7)
	for i := 0; i < n; i++ {
		data = append(data, float64(i*10), 1, 1, 20, 50, 6.5, 100)
	}
	y, err := enc.Transform(labels)
	require.NoError(t, err)

	tree, err := classifier.Fit(mat.NewDense(n, 7, data), y, enc.Len(), classifier.Options{Seed: classifier.DefaultSeed})
	require.NoError(t, err)
	return tree, enc
}

func tempPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	crops := filepath.Join(dir, "crops_info.csv")
	require.NoError(t, os.WriteFile(crops, []byte("crop,ph\nrice,6\nmaize,6.5\n"), 0o600))
	return Paths{
		Model:    filepath.Join(dir, "model.json"),
		Encoder:  filepath.Join(dir, "label_encoder.json"),
		CropInfo: crops,
	}
}

func TestSaveLoad(t *testing.T) {
	p := tempPaths(t)
	tree, enc := fitted(t, "rice", "maize")

	require.NoError(t, Save(p, tree, enc))

	ictx, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 2, ictx.NumClasses())
	assert.Equal(t, tree.Nodes, ictx.Model.Nodes)
	assert.Equal(t, []string{"maize", "rice"}, ictx.Encoder.Classes())
	assert.Equal(t, 2, ictx.Crops.Len())

	entries, err := os.ReadDir(filepath.Dir(p.Model))
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temporaries or backups are left behind")
}

func TestLoad_MissingFiles(t *testing.T) {
	p := tempPaths(t)
	tree, enc := fitted(t, "rice", "maize")
	require.NoError(t, Save(p, tree, enc))

	for name, mutate := range map[string]func(*Paths){
		"model":     func(p *Paths) { p.Model += ".missing" },
		"encoder":   func(p *Paths) { p.Encoder += ".missing" },
		"crop info": func(p *Paths) { p.CropInfo += ".missing" },
	} {
		t.Run(name, func(t *testing.T) {
			broken := p
			mutate(&broken)
			_, err := Load(broken)
			require.Error(t, err)
			appErr, ok := apperror.FromError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.ArtifactError, appErr.Type)
		})
	}
}

func TestLoad_ClassCountMismatch(t *testing.T) {
	p := tempPaths(t)
	tree, enc := fitted(t, "rice", "maize")
	require.NoError(t, Save(p, tree, enc))

	other, err := classifier.FitLabelEncoder([]string{"a", "b", "c"})
	require.NoError(t, err)
	data, err := other.MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p.Encoder, data, 0o600))

	_, err = Load(p)
	assert.ErrorContains(t, err, "classes")
}

func TestSave_RollsBackModelWhenEncoderInstallFails(t *testing.T) {
	p := tempPaths(t)
	require.NoError(t, os.WriteFile(p.Model, []byte("previous model"), 0o600))
	// A non-empty directory at the encoder path makes the second rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(p.Encoder, "occupied"), 0o755))

	tree, enc := fitted(t, "rice", "maize")
	require.Error(t, Save(p, tree, enc))

	data, err := os.ReadFile(p.Model)
	require.NoError(t, err)
	assert.Equal(t, "previous model", string(data))
}

func TestSave_RejectsMismatchedPair(t *testing.T) {
	p := tempPaths(t)
	tree, _ := fitted(t, "rice", "maize")
	enc, err := classifier.FitLabelEncoder([]string{"x"})
	require.NoError(t, err)

	require.Error(t, Save(p, tree, enc))
	_, err = os.Stat(p.Model)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
