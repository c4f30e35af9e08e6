package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuflow/secuflow-go/internal/config"
)

func testPreparer(allow []string, exclude []string) *Preparer {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	return NewPreparer(config.WorkspaceConfig{
		AllowExtensions: allow,
		ExcludeDirs:     exclude,
	}, config.GitConfig{}, log)
}

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestPruneTreeAllowList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/main.py")
	writeFile(t, root, "app/util.py")
	writeFile(t, root, "README.md")
	writeFile(t, root, "assets/logo.png")
	writeFile(t, root, "node_modules/pkg/index.py")
	writeFile(t, root, ".git/config")

	p := testPreparer([]string{".py"}, []string{"node_modules"})
	pruned, err := p.pruneTree(root)
	require.NoError(t, err)

	assert.True(t, exists(filepath.Join(root, "app/main.py")))
	assert.True(t, exists(filepath.Join(root, "app/util.py")))
	assert.False(t, exists(filepath.Join(root, "README.md")))
	assert.False(t, exists(filepath.Join(root, "assets/logo.png")))
	assert.False(t, exists(filepath.Join(root, "node_modules")))
	// .git is never touched
	assert.True(t, exists(filepath.Join(root, ".git/config")))

	assert.Contains(t, pruned, "README.md")
	assert.Contains(t, pruned, "node_modules")
}

func TestPruneTreeExtensionCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Main.PY")

	p := testPreparer([]string{".py"}, nil)
	_, err := p.pruneTree(root)
	require.NoError(t, err)
	assert.True(t, exists(filepath.Join(root, "Main.PY")))
}

func TestPruneTreeRemovesSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.py")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.py"), filepath.Join(root, "link.py")))

	p := testPreparer([]string{".py"}, nil)
	pruned, err := p.pruneTree(root)
	require.NoError(t, err)

	assert.True(t, exists(filepath.Join(root, "real.py")))
	assert.False(t, exists(filepath.Join(root, "link.py")))
	assert.Contains(t, pruned, "link.py")
}

func TestRemoveEmptyDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep/file.py")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty/nested"), 0o755))

	removeEmptyDirs(root)

	assert.True(t, exists(filepath.Join(root, "keep/file.py")))
	assert.False(t, exists(filepath.Join(root, "empty")))
}

func TestWorkspaceCleanupNilSafe(t *testing.T) {
	var ws *Workspace
	ws.Cleanup()

	(&Workspace{}).Cleanup()
}
