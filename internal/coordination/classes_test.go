package coordination

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuflow/secuflow-go/internal/models"
)

func TestClassifyPrecedence(t *testing.T) {
	cfg := &ClassConfig{
		DefaultClass: "other",
		Classes: []ClassRule{
			{Name: "architects", Members: []string{"alice"}},
			{Name: "coders", Roles: []string{"coder"}},
		},
	}

	contributors := []models.ProjectContributor{
		{Login: "alice", FunctionalRole: models.RoleCoder},       // member wins over role
		{Login: "bob", FunctionalRole: models.RoleCoder},         // role rule
		{Login: "carol", FunctionalRole: models.RoleUnclassified}, // default
	}

	classOf := cfg.Classify(contributors)
	assert.Equal(t, "architects", classOf["alice"])
	assert.Equal(t, "coders", classOf["bob"])
	assert.Equal(t, "other", classOf["carol"])
}

func TestClassifyWithoutDefaultExcludes(t *testing.T) {
	cfg := DefaultClassConfig()
	classOf := cfg.Classify([]models.ProjectContributor{
		{Login: "alice", FunctionalRole: models.RoleCoder},
		{Login: "bob", FunctionalRole: models.RoleUnclassified},
	})
	assert.Equal(t, "coder", classOf["alice"])
	assert.NotContains(t, classOf, "bob")
}

func TestLoadClassConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_class: other
classes:
  - name: coders
    roles: [coder]
  - name: leads
    members: [alice, bob]
`), 0o644))

	cfg, err := LoadClassConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.DefaultClass)
	require.Len(t, cfg.Classes, 2)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Classes[1].Members)
}

func TestLoadClassConfigRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_class: x\n"), 0o644))
	_, err := LoadClassConfig(path)
	assert.Error(t, err)

	path2 := filepath.Join(t.TempDir(), "unnamed.yaml")
	require.NoError(t, os.WriteFile(path2, []byte("classes:\n  - roles: [coder]\n"), 0o644))
	_, err = LoadClassConfig(path2)
	assert.Error(t, err)
}
