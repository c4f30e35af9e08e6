package mining

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReadRawValidJSON(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, ArtifactIDToUser, `{"0":"alice@example.com"}`)

	raw, err := Artifacts{Dir: dir}.ReadRaw(ArtifactIDToUser)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":"alice@example.com"}`, string(raw))
}

func TestReadRawWrapsMalformedContent(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, ArtifactIDToUser, "not json at all {")

	raw, err := Artifacts{Dir: dir}.ReadRaw(ArtifactIDToUser)
	require.NoError(t, err)

	var wrapped map[string]string
	require.NoError(t, json.Unmarshal(raw, &wrapped))
	assert.Equal(t, "not json at all {", wrapped["content"])
}

func TestReadRawMissingFile(t *testing.T) {
	_, err := Artifacts{Dir: t.TempDir()}.ReadRaw(ArtifactIDToUser)
	assert.Error(t, err)
}

func TestLoadAssignmentOutput(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, ArtifactIDToUser, `{"0":"alice@example.com","1":"bob@example.com"}`)
	writeArtifact(t, dir, ArtifactIDToFile, `{"0":"src/main.py","1":"src/util.py"}`)
	writeArtifact(t, dir, ArtifactAssignmentMatrix, `{"0":{"0":5,"1":3},"1":{"1":2}}`)

	out, err := Artifacts{Dir: dir}.LoadAssignmentOutput()
	require.NoError(t, err)
	assert.Len(t, out.IDToUser, 2)
	assert.Equal(t, 5, out.AssignmentMatrix["0"]["0"])
	assert.Equal(t, "src/util.py", out.IDToFile["1"])
}

func TestLoadAssignmentOutputWithoutFileMap(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, ArtifactIDToUser, `{"0":"alice@example.com"}`)
	writeArtifact(t, dir, ArtifactAssignmentMatrix, `{"0":{"0":5}}`)

	out, err := Artifacts{Dir: dir}.LoadAssignmentOutput()
	require.NoError(t, err)
	assert.Empty(t, out.IDToFile)
}
