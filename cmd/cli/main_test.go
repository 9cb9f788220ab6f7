package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "jtpa.csv")
	cmd := newGenerateCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--n", "150", "--out", out})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "wrote 150 rows")
	assert.FileExists(t, out)
}

func TestLoadAppliesOverrides(t *testing.T) {
	for _, key := range []string{"INPUT_FILE", "SEED", "BW_SELECT", "PLOT_FORMAT", "DATABASE_URL", "CI_UNIFORM", "OUTPUT_DIR"} {
		t.Setenv(key, "")
	}
	o := &overrides{input: "data.xlsx", output: "-", seed: 7, bwselect: "MSE-ROT", format: "svg", pointwise: true}
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "")
	require.NoError(t, cmd.Flags().Set("seed", "7"))

	c, err := load(context.Background(), cmd, o)
	require.NoError(t, err)

	assert.Equal(t, "data.xlsx", c.Config.Data.InputFile)
	assert.Empty(t, c.Config.Output.Dir)
	assert.Equal(t, int64(7), c.Config.Analysis.Seed)
	assert.Equal(t, "mse-rot", c.Config.Analysis.BWSelect)
	assert.Equal(t, "svg", c.Renderer.Format())
	assert.False(t, c.Config.Analysis.Uniform)
}

func TestLoadRejectsBadFlag(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := load(context.Background(), &cobra.Command{Use: "x"}, &overrides{bwselect: "cv"})
	assert.Error(t, err)
}
