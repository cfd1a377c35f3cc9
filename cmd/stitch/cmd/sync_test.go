package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeSyncCommand runs the sync command under a minimal root so the
// persistent --library-path flag is available, the way it is in production.
func executeSyncCommand(t *testing.T, args []string) error {
	t.Helper()
	root := &cobra.Command{Use: "stitch"}
	root.PersistentFlags().String("library-path", "", "")
	root.PersistentFlags().String("config", "", "")
	root.AddCommand(newSyncCommand())
	root.SetArgs(append([]string{"sync"}, args...))
	root.SetOut(nil)
	root.SetErr(nil)
	return root.Execute()
}

// writeSourceLibrary lays out a library source directory with one agent
// profile and one rules file.
func writeSourceLibrary(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "agents"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rules"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents", "custom.yaml"), []byte("name: custom\ndescription: Team agent\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules", "extra.yaml"), []byte("rules: []\n"), 0644))
}

// TestRunSyncCommand_EmbeddedDefaults tests `stitch sync --local-only` into an
// explicit library path. The embedded agent profiles and rules should be
// installed there.
func TestRunSyncCommand_EmbeddedDefaults(t *testing.T) {
	libDir, err := os.MkdirTemp("", "stitch_sync_defaults_")
	assert.NoError(t, err)
	defer os.RemoveAll(libDir)

	err = executeSyncCommand(t, []string{"--library-path", libDir, "--local-only"})
	assert.NoError(t, err)

	assert.FileExists(t, filepath.Join(libDir, "agents", "admin.yaml"))
	assert.FileExists(t, filepath.Join(libDir, "agents", "task-helper.yaml"))
	assert.FileExists(t, filepath.Join(libDir, "rules", "default.yaml"))
}

// TestRunSyncCommand_FromSourceDirectory tests `stitch sync --from <dir>`. The
// source directory's profiles and rules should be copied into the library and
// the update timestamp recorded.
func TestRunSyncCommand_FromSourceDirectory(t *testing.T) {
	libDir, err := os.MkdirTemp("", "stitch_sync_target_")
	assert.NoError(t, err)
	defer os.RemoveAll(libDir)

	sourceDir, err := os.MkdirTemp("", "stitch_sync_source_")
	assert.NoError(t, err)
	defer os.RemoveAll(sourceDir)
	writeSourceLibrary(t, sourceDir)

	err = executeSyncCommand(t, []string{"--library-path", libDir, "--from", sourceDir})
	assert.NoError(t, err)

	assert.FileExists(t, filepath.Join(libDir, "agents", "custom.yaml"))
	assert.FileExists(t, filepath.Join(libDir, "rules", "extra.yaml"))
	assert.FileExists(t, filepath.Join(libDir, ".last_updated"), "Update timestamp should be recorded")

	copied, err := os.ReadFile(filepath.Join(libDir, "agents", "custom.yaml"))
	assert.NoError(t, err)
	assert.Contains(t, string(copied), "Team agent")
}

// TestRunSyncCommand_FromDryRun tests that --dry-run reports without copying.
func TestRunSyncCommand_FromDryRun(t *testing.T) {
	libDir, err := os.MkdirTemp("", "stitch_sync_dryrun_")
	assert.NoError(t, err)
	defer os.RemoveAll(libDir)

	sourceDir, err := os.MkdirTemp("", "stitch_sync_drysource_")
	assert.NoError(t, err)
	defer os.RemoveAll(sourceDir)
	writeSourceLibrary(t, sourceDir)

	err = executeSyncCommand(t, []string{"--library-path", libDir, "--from", sourceDir, "--dry-run"})
	assert.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(libDir, "agents", "custom.yaml"), "Dry run should not copy files")
	assert.NoFileExists(t, filepath.Join(libDir, ".last_updated"), "Dry run should not record an update")
}

// TestRunSyncCommand_ForceOverwritesNewerTarget tests the updater's skip and
// force semantics. A target file that is newer than the source is left alone
// on a plain sync and replaced when --force is given.
func TestRunSyncCommand_ForceOverwritesNewerTarget(t *testing.T) {
	libDir, err := os.MkdirTemp("", "stitch_sync_force_")
	assert.NoError(t, err)
	defer os.RemoveAll(libDir)

	sourceDir, err := os.MkdirTemp("", "stitch_sync_forcesource_")
	assert.NoError(t, err)
	defer os.RemoveAll(sourceDir)
	writeSourceLibrary(t, sourceDir)

	// Pre-populate the target with a same-size file that is newer than the
	// source copy.
	sourceProfile := filepath.Join(sourceDir, "agents", "custom.yaml")
	targetProfile := filepath.Join(libDir, "agents", "custom.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(targetProfile), 0755))
	sourceData, err := os.ReadFile(sourceProfile)
	require.NoError(t, err)
	edited := make([]byte, len(sourceData))
	copy(edited, sourceData)
	edited[len(edited)-2] = '#'
	require.NoError(t, os.WriteFile(targetProfile, edited, 0644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(sourceProfile, past, past))

	err = executeSyncCommand(t, []string{"--library-path", libDir, "--from", sourceDir})
	assert.NoError(t, err)
	kept, err := os.ReadFile(targetProfile)
	assert.NoError(t, err)
	assert.Equal(t, edited, kept, "Newer target file should be kept without --force")

	err = executeSyncCommand(t, []string{"--library-path", libDir, "--from", sourceDir, "--force"})
	assert.NoError(t, err)
	replaced, err := os.ReadFile(targetProfile)
	assert.NoError(t, err)
	assert.Equal(t, sourceData, replaced, "--force should overwrite the target")
}
