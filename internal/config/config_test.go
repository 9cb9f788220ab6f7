package config

import (
	"testing"

	"jtpadensity/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"INPUT_FILE", "SEED", "GRID_MIN", "GRID_MAX", "GRID_POINTS", "BW_SELECT", "PLOT_FORMAT", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "jtpa.csv", cfg.Data.InputFile)
	assert.Equal(t, int64(42), cfg.Analysis.Seed)
	assert.Equal(t, 2.0, cfg.Analysis.GridMin)
	assert.Equal(t, 5.0, cfg.Analysis.GridMax)
	assert.Equal(t, 10, cfg.Analysis.GridPoints)
	assert.Equal(t, "imse-dpi", cfg.Analysis.BWSelect)
	assert.Equal(t, 2, cfg.Analysis.PolyOrder)
	assert.True(t, cfg.Analysis.Uniform)
	assert.Equal(t, "png", cfg.Output.PlotFormat)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SEED", "7")
	t.Setenv("BW_SELECT", "MSE-ROT")
	t.Setenv("PLOT_FORMAT", "svg")
	t.Setenv("GRID_POINTS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Analysis.Seed)
	assert.Equal(t, "mse-rot", cfg.Analysis.BWSelect)
	assert.Equal(t, "svg", cfg.Output.PlotFormat)
	assert.Equal(t, 10, cfg.Analysis.GridPoints, "unparsable values fall back to the default")
}

func TestValidateRejectsBadSettings(t *testing.T) {
	t.Setenv("BW_SELECT", "")
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown rule", func(c *Config) { c.Analysis.BWSelect = "cv" }},
		{"inverted grid", func(c *Config) { c.Analysis.GridMin, c.Analysis.GridMax = 5, 2 }},
		{"single point", func(c *Config) { c.Analysis.GridPoints = 1 }},
		{"unknown kernel", func(c *Config) { c.Analysis.Kernel = "gaussian" }},
		{"level out of range", func(c *Config) { c.Analysis.CILevel = 100 }},
		{"too few draws", func(c *Config) { c.Analysis.CIReps = 10 }},
		{"bad format", func(c *Config) { c.Output.PlotFormat = "gif" }},
		{"empty input", func(c *Config) { c.Data.InputFile = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
