package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDefinition(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "testdata/bird.yaml")

	require.NoError(t, err)
	assert.Contains(t, out, "testdata/bird.yaml is valid (5 states)")
}

func TestValidate_Invalid(t *testing.T) {
	path := writeDefinition(t, "initial: a\nstates:\n  a:\n    permit: {go: b}\n")

	_, err := execute(t, "validate", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permit 'go' targets undefined state 'b'")
}

func TestValidate_NeedsFile(t *testing.T) {
	_, err := execute(t, "validate")
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph", "testdata/bird.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "stateDiagram-v2")
	assert.Contains(t, out, "state alive {")

	out, err = execute(t, "graph", "--format", "dot", "testdata/bird.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph {")
	assert.Contains(t, out, `subgraph "clusteralive_mood"`)

	_, err = execute(t, "graph", "-f", "svg", "testdata/bird.yaml")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "testdata/bird.yaml", "hatch", "migrate", "startle")

	require.NoError(t, err)
	assert.Contains(t, out, "egg")
	assert.Contains(t, out, "alive[holland, calm]")
	assert.Contains(t, out, "alive[germany, calm]")
	assert.Contains(t, out, "alive[germany, scared]")
}

func TestRun_StopsOnError(t *testing.T) {
	out, err := execute(t, "run", "testdata/bird.yaml", "fly", "hatch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fire fly")
	assert.NotContains(t, out, "alive")
}

func TestRun_KeepGoing(t *testing.T) {
	out, err := execute(t, "run", "-k", "testdata/bird.yaml", "fly", "hatch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 triggers failed")
	assert.Contains(t, out, "alive[holland, calm]")
}
