package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	o := Defaults()

	assert.Equal(t, "V1", o.Version)
	assert.Equal(t, "ContinuitySFH", o.ModelType)
	assert.Equal(t, 8, o.AgeBins)
	assert.True(t, o.UsePhotometry)
	assert.True(t, o.UseSpectroscopy)
	assert.True(t, o.FilterPhotometry)
	assert.True(t, o.FilterSpectroscopy)
	assert.True(t, o.UseStoredMask)
	assert.True(t, o.NestedSampling)
	assert.False(t, o.Optimize)
	assert.False(t, o.MCMC)
	assert.Nil(t, o.Redshift)
	assert.Equal(t, 300, o.Sampler.LivePoints)
	assert.Equal(t, "rwalk", o.Sampler.SampleMethod)
}

func TestClone(t *testing.T) {
	base := Defaults()
	z := 0.05
	base.Redshift = &z

	clone := base.Clone()
	clone.Source = "data/NGC1234.json"
	*clone.Redshift = 1.5

	assert.Empty(t, base.Source, "clone must not leak into the base")
	assert.Equal(t, 0.05, *base.Redshift, "redshift pointer must be copied")
	assert.Equal(t, 1.5, *clone.Redshift)
}

func TestMergeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	contents := `
version: F160W_selected
use_photometry: false
age_bins: 4
sampler:
  live_points: 500
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	o := Defaults()
	require.NoError(t, o.MergeFile(path))

	assert.Equal(t, "F160W_selected", o.Version)
	assert.False(t, o.UsePhotometry)
	assert.Equal(t, 4, o.AgeBins)
	assert.Equal(t, 500, o.Sampler.LivePoints)
	// Untouched fields keep their defaults.
	assert.True(t, o.UseSpectroscopy)
	assert.Equal(t, "rwalk", o.Sampler.SampleMethod)
}

func TestMergeFile_Errors(t *testing.T) {
	o := Defaults()
	assert.Error(t, o.MergeFile("does/not/exist.yaml"))

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: [unclosed"), 0600))
	assert.Error(t, o.MergeFile(bad))
}

func TestValidate(t *testing.T) {
	t.Run("no targets", func(t *testing.T) {
		o := Defaults()
		assert.ErrorIs(t, o.Validate(), ErrNoTargets)
	})

	t.Run("no engine", func(t *testing.T) {
		o := Defaults()
		o.Source = "data/a.json"
		o.NestedSampling = false
		assert.ErrorIs(t, o.Validate(), ErrNoEngineSelected)
	})

	t.Run("bad age bins", func(t *testing.T) {
		o := Defaults()
		o.Source = "data/a.json"
		o.AgeBins = 0
		assert.Error(t, o.Validate())
	})

	t.Run("missing dispersion file", func(t *testing.T) {
		o := Defaults()
		o.Source = "data/a.json"
		o.DispersionFile = filepath.Join(t.TempDir(), "nope.txt")
		assert.ErrorContains(t, o.Validate(), "dispersion file")
	})

	t.Run("existing dispersion file", func(t *testing.T) {
		o := Defaults()
		o.Source = "data/a.json"
		path := filepath.Join(t.TempDir(), "lsf.txt")
		require.NoError(t, os.WriteFile(path, []byte("5000 2.5\n"), 0600))
		o.DispersionFile = path
		assert.NoError(t, o.Validate())
	})

	t.Run("ok", func(t *testing.T) {
		o := Defaults()
		o.Source = "data/a.json"
		assert.NoError(t, o.Validate())
	})
}

func TestEngineName(t *testing.T) {
	o := Defaults()
	assert.Equal(t, "dynesty", o.EngineName())

	o.NestedSampling = false
	o.MCMC = true
	assert.Equal(t, "emcee", o.EngineName())

	o.MCMC = false
	o.Optimize = true
	assert.Equal(t, "optimize", o.EngineName())
}

func TestTargets(t *testing.T) {
	t.Run("single source", func(t *testing.T) {
		o := Defaults()
		o.Source = "data/NGC1234.json"
		targets, err := o.Targets()
		require.NoError(t, err)
		assert.Equal(t, []string{"data/NGC1234.json"}, targets)
	})

	t.Run("manifest order preserved", func(t *testing.T) {
		dir := t.TempDir()
		manifest := filepath.Join(dir, "targets.txt")
		contents := "data/b.json\n\n# a comment\ndata/a.json\ndata/c.json\n"
		require.NoError(t, os.WriteFile(manifest, []byte(contents), 0600))

		o := Defaults()
		o.Manifest = manifest
		targets, err := o.Targets()
		require.NoError(t, err)
		assert.Equal(t, []string{"data/b.json", "data/a.json", "data/c.json"}, targets)
	})

	t.Run("unreadable manifest is fatal", func(t *testing.T) {
		o := Defaults()
		o.Manifest = "does/not/exist.txt"
		_, err := o.Targets()
		assert.Error(t, err)
	})

	t.Run("nothing configured", func(t *testing.T) {
		o := Defaults()
		_, err := o.Targets()
		assert.ErrorIs(t, err, ErrNoTargets)
	})
}

func TestDatasetID(t *testing.T) {
	assert.Equal(t, "NGC1234", DatasetID("data/deep/NGC1234.json"))
	assert.Equal(t, "NGC1234", DatasetID("NGC1234.h5"))
	assert.Equal(t, "NGC1234", DatasetID("NGC1234"))
}
