package coordination

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/secuflow/secuflow-go/internal/models"
)

// ClassRule assigns contributors to a functional class, either by explicit
// login or by their suggested role.
type ClassRule struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
	Roles   []string `yaml:"roles"`
}

// ClassConfig partitions contributors into the functional classes multi-
// class congruence is computed over. Explicit membership wins over role
// rules; contributors matching nothing land in DefaultClass, or are
// excluded when it is empty.
type ClassConfig struct {
	DefaultClass string      `yaml:"default_class"`
	Classes      []ClassRule `yaml:"classes"`
}

// DefaultClassConfig maps suggested roles straight to classes.
func DefaultClassConfig() *ClassConfig {
	return &ClassConfig{
		Classes: []ClassRule{
			{Name: "coder", Roles: []string{string(models.RoleCoder)}},
			{Name: "reviewer", Roles: []string{string(models.RoleReviewer)}},
		},
	}
}

// LoadClassConfig reads a class configuration from a YAML file.
func LoadClassConfig(path string) (*ClassConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class config: %w", err)
	}
	var cfg ClassConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse class config: %w", err)
	}
	if len(cfg.Classes) == 0 {
		return nil, fmt.Errorf("class config defines no classes")
	}
	for _, c := range cfg.Classes {
		if c.Name == "" {
			return nil, fmt.Errorf("class config contains an unnamed class")
		}
	}
	return &cfg, nil
}

// Classify maps contributor logins to class names using the config rules.
func (cfg *ClassConfig) Classify(contributors []models.ProjectContributor) map[string]string {
	classOf := make(map[string]string, len(contributors))

	memberClass := map[string]string{}
	roleClass := map[string]string{}
	for _, rule := range cfg.Classes {
		for _, login := range rule.Members {
			memberClass[login] = rule.Name
		}
		for _, role := range rule.Roles {
			roleClass[role] = rule.Name
		}
	}

	for _, pc := range contributors {
		switch {
		case memberClass[pc.Login] != "":
			classOf[pc.Login] = memberClass[pc.Login]
		case roleClass[string(pc.FunctionalRole)] != "":
			classOf[pc.Login] = roleClass[string(pc.FunctionalRole)]
		case cfg.DefaultClass != "":
			classOf[pc.Login] = cfg.DefaultClass
		}
	}
	return classOf
}
