package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 3, c.Candidates)
	assert.Equal(t, 0.1, c.Epsilon)
	assert.Equal(t, 0.5, c.FilterPassRate)
	assert.Equal(t, 1.0, c.Weights.Alpha)
	assert.False(t, c.Cache.Enabled())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, c Config)
		wantErr string
	}{
		{
			name:  "empty keeps defaults",
			input: "",
			check: func(t *testing.T, c Config) {
				assert.Equal(t, Default(), c)
			},
		},
		{
			name: "overrides",
			input: `
name: pipeline
budget: 250ms
samples: 20
effectful: [print, readFile]
weights:
  alpha: 2
  beta: 0
  gamma: 5
  delta: 1000
cache:
  dir: /tmp/proofs
`,
			check: func(t *testing.T, c Config) {
				assert.Equal(t, "pipeline", c.Name)
				assert.Equal(t, 250*time.Millisecond, c.Budget)
				assert.Equal(t, 20, c.Samples)
				assert.Equal(t, []string{"print", "readFile"}, c.Effectful)
				assert.Equal(t, 1000.0, c.Weights.Delta)
				assert.True(t, c.Cache.Enabled())
				assert.Equal(t, 3, c.Candidates)

				cc := c.CostConfig()
				assert.Equal(t, c.Weights, cc.Weights)
				assert.Equal(t, c.Effectful, cc.Effectful)
				assert.Equal(t, 20, c.VerifyConfig().Samples)
			},
		},
		{name: "epsilon out of range", input: "epsilon: 1.5", wantErr: "Epsilon"},
		{name: "pass rate zero", input: "filter_pass_rate: 0", wantErr: "FilterPassRate"},
		{name: "negative weight", input: "weights: {alpha: -1}", wantErr: "Alpha"},
		{name: "missing name", input: "name: \"\"", wantErr: "Name"},
		{name: "not yaml", input: "budget: [", wantErr: "failed to parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Decode(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surgeon.yaml")

	c := Default()
	c.Name = "roundtrip"
	c.Budget = time.Second
	c.Cache = Cache{InMemory: true}
	require.NoError(t, Write(path, c))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: roundtrip")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := Default()
	bad.Candidates = 0
	assert.Error(t, Write(filepath.Join(t.TempDir(), "bad.yaml"), bad))
}
