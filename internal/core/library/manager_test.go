// SPDX-License-Identifier: Apache-2.0

package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLibrary(t *testing.T, base string) string {
	t.Helper()
	for _, subdir := range []string{"agents", "rules"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, subdir), 0755))
	}
	return base
}

func TestResolveLibraryPath(t *testing.T) {
	t.Run("CmdLinePathWins", func(t *testing.T) {
		t.Setenv("STITCH_HOME", t.TempDir())
		cmdLine := makeLibrary(t, t.TempDir())
		global := makeLibrary(t, t.TempDir())

		m := NewManager(global, cmdLine, false)
		info, err := m.ResolveLibraryPath()
		require.NoError(t, err)

		assert.Equal(t, cmdLine, info.Path)
		assert.Equal(t, "cmdline", info.Source)
		assert.True(t, info.Valid)
	})

	t.Run("EnvPathBeatsConfig", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("STITCH_HOME", home)
		envLib := makeLibrary(t, filepath.Join(home, ".stitch", "library"))
		global := makeLibrary(t, t.TempDir())

		m := NewManager(global, "", false)
		info, err := m.ResolveLibraryPath()
		require.NoError(t, err)

		assert.Equal(t, envLib, info.Path)
		assert.Equal(t, "env", info.Source)
	})

	t.Run("MissingSubdirsIsInvalid", func(t *testing.T) {
		t.Setenv("STITCH_HOME", t.TempDir())
		incomplete := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(incomplete, "agents"), 0755))

		m := NewManager("", incomplete, false)
		_, err := m.ResolveLibraryPath()
		assert.Error(t, err)
	})
}

func TestCreateLibraryStructure(t *testing.T) {
	t.Setenv("STITCH_HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "newlib")

	m := NewManager("", "", false)
	require.NoError(t, m.CreateLibraryStructure(target))

	info := m.validateLibraryPath(target, "cmdline")
	assert.True(t, info.Valid)
}

func TestListAvailableAgents(t *testing.T) {
	lib := makeLibrary(t, t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(lib, "agents", "task-helper.yaml"), []byte("name: task-helper"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "agents", "notes.txt"), []byte("ignored"), 0644))

	m := NewManager("", "", false)
	agents, err := m.ListAvailableAgents(lib)
	require.NoError(t, err)

	assert.Equal(t, []string{"task-helper"}, agents)
}
