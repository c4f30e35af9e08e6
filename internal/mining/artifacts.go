package mining

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names the external tool writes. Fixed by its output
// contract; readers never guess at other names.
const (
	ArtifactIDToUser         = "idToUser.json"
	ArtifactIDToFile         = "idToFile.json"
	ArtifactAssignmentMatrix = "AssignmentMatrix.json"
	ArtifactFileDependency   = "FileDependencyMatrix.json"
)

// Artifacts reads the JSON outputs of one mining run from its directory.
type Artifacts struct {
	Dir string
}

// ReadRaw returns an artifact's content as JSON. Files that are not valid
// JSON are not an error: the raw text is wrapped as {"content": raw} so
// callers always receive a JSON document.
func (a Artifacts) ReadRaw(name string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(a.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	if json.Valid(data) {
		return json.RawMessage(data), nil
	}
	wrapped, err := json.Marshal(map[string]string{"content": string(data)})
	if err != nil {
		return nil, fmt.Errorf("failed to wrap artifact %s: %w", name, err)
	}
	return wrapped, nil
}

// IDMap loads an id-to-name artifact (idToUser.json, idToFile.json).
func (a Artifacts) IDMap(name string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(a.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("artifact %s is not an id map: %w", name, err)
	}
	return m, nil
}

// Matrix loads a sparse matrix artifact: outer id to inner id to count.
func (a Artifacts) Matrix(name string) (map[string]map[string]int, error) {
	data, err := os.ReadFile(filepath.Join(a.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	var m map[string]map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("artifact %s is not a sparse matrix: %w", name, err)
	}
	return m, nil
}

// AssignmentOutput is the trio of artifacts contributor ingestion consumes.
type AssignmentOutput struct {
	IDToUser         map[string]string
	IDToFile         map[string]string
	AssignmentMatrix map[string]map[string]int
}

// LoadAssignmentOutput reads the assignment-miner artifacts. idToFile is
// optional; when absent the file-type breakdown simply stays empty.
func (a Artifacts) LoadAssignmentOutput() (*AssignmentOutput, error) {
	idToUser, err := a.IDMap(ArtifactIDToUser)
	if err != nil {
		return nil, err
	}
	matrix, err := a.Matrix(ArtifactAssignmentMatrix)
	if err != nil {
		return nil, err
	}
	out := &AssignmentOutput{
		IDToUser:         idToUser,
		AssignmentMatrix: matrix,
		IDToFile:         map[string]string{},
	}
	if idToFile, err := a.IDMap(ArtifactIDToFile); err == nil {
		out.IDToFile = idToFile
	}
	return out, nil
}

// LoadDependencyMatrix reads the file-dependency artifacts: the sparse
// matrix plus the file id map used to translate ids to paths.
func (a Artifacts) LoadDependencyMatrix() (map[string]map[string]int, map[string]string, error) {
	matrix, err := a.Matrix(ArtifactFileDependency)
	if err != nil {
		return nil, nil, err
	}
	idToFile, err := a.IDMap(ArtifactIDToFile)
	if err != nil {
		return nil, nil, err
	}
	return matrix, idToFile, nil
}
