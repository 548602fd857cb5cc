package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/xamldbg/host/snapshot"
)

func TestCommandFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.yaml")
	require.NoError(t, snapshot.New(4).Save(path))

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"xamltools", "version", "--snapshot", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "xamldbg dev")
	assert.Contains(t, out.String(), "pointer size 4")

	out.Reset()
	rootCmd.SetArgs([]string{"-s", path, "xamltools", "nope"})
	assert.Error(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "xamltools nope")
}
