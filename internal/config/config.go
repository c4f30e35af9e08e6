package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Git transport settings
	Git GitConfig `yaml:"git" mapstructure:"git"`

	// Mining tool settings
	Mining MiningConfig `yaml:"mining" mapstructure:"mining"`

	// Workspace sanitization settings
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Branch cache settings
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Coordination scoring settings
	Coordination CoordinationConfig `yaml:"coordination" mapstructure:"coordination"`
}

type GitConfig struct {
	ReposDir       string        `yaml:"repos_dir" mapstructure:"repos_dir"`
	LocalTimeout   time.Duration `yaml:"local_timeout" mapstructure:"local_timeout"`
	RemoteTimeout  time.Duration `yaml:"remote_timeout" mapstructure:"remote_timeout"`
	CloneTimeout   time.Duration `yaml:"clone_timeout" mapstructure:"clone_timeout"`
	TerminalPrompt bool          `yaml:"terminal_prompt" mapstructure:"terminal_prompt"`
}

type MiningConfig struct {
	JavaPath      string        `yaml:"java_path" mapstructure:"java_path"`
	JarPath       string        `yaml:"jar_path" mapstructure:"jar_path"`
	DockerMode    bool          `yaml:"docker_mode" mapstructure:"docker_mode"`
	ContainerName string        `yaml:"container_name" mapstructure:"container_name"`
	CommandPrefix string        `yaml:"command_prefix" mapstructure:"command_prefix"`
	OutputDir     string        `yaml:"output_dir" mapstructure:"output_dir"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	StreamOutput  bool          `yaml:"stream_output" mapstructure:"stream_output"`
}

type WorkspaceConfig struct {
	BaseDir         string   `yaml:"base_dir" mapstructure:"base_dir"`
	AllowExtensions []string `yaml:"allow_extensions" mapstructure:"allow_extensions"`
	ExcludeDirs     []string `yaml:"exclude_dirs" mapstructure:"exclude_dirs"`
	RewriteHistory  bool     `yaml:"rewrite_history" mapstructure:"rewrite_history"`
}

type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "sqlite", "postgres"
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
}

type CacheConfig struct {
	BranchTTL time.Duration `yaml:"branch_ttl" mapstructure:"branch_ttl"`
}

type CoordinationConfig struct {
	CaMinSharedEdits  int    `yaml:"ca_min_shared_edits" mapstructure:"ca_min_shared_edits"`
	ClassConfigPath   string `yaml:"class_config_path" mapstructure:"class_config_path"`
	BackgroundWorkers int    `yaml:"background_workers" mapstructure:"background_workers"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".secuflow")
	return &Config{
		Git: GitConfig{
			ReposDir:      filepath.Join(base, "repos"),
			LocalTimeout:  10 * time.Second,
			RemoteTimeout: 30 * time.Second,
			CloneTimeout:  300 * time.Second,
		},
		Mining: MiningConfig{
			JavaPath:      "java",
			JarPath:       "/app/tnm-cli.jar",
			ContainerName: "secuflow-tnm",
			OutputDir:     filepath.Join(base, "output"),
			Timeout:       10 * time.Minute,
		},
		Workspace: WorkspaceConfig{
			BaseDir: filepath.Join(base, "workspaces"),
			AllowExtensions: []string{
				".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".kt",
				".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".rb", ".rs",
				".php", ".scala", ".swift", ".m", ".sql", ".sh",
			},
			ExcludeDirs: []string{
				"node_modules", "vendor", "dist", "build", "target",
				".idea", ".vscode", "__pycache__", ".gradle",
			},
		},
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(base, "secuflow.db"),
		},
		Cache: CacheConfig{
			BranchTTL: 5 * time.Minute,
		},
		Coordination: CoordinationConfig{
			CaMinSharedEdits:  1,
			BackgroundWorkers: 2,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("git", cfg.Git)
	v.SetDefault("mining", cfg.Mining)
	v.SetDefault("workspace", cfg.Workspace)
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("coordination", cfg.Coordination)

	v.SetEnvPrefix("SECUFLOW")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".secuflow")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".secuflow"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".secuflow", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if dir := os.Getenv("TNM_REPOSITORIES_DIR"); dir != "" {
		cfg.Git.ReposDir = dir
	}
	if dir := os.Getenv("TNM_OUTPUT_DIR"); dir != "" {
		cfg.Mining.OutputDir = dir
	}
	if jar := os.Getenv("TNM_JAR_PATH"); jar != "" {
		cfg.Mining.JarPath = jar
	}
	if java := os.Getenv("TNM_JAVA_PATH"); java != "" {
		cfg.Mining.JavaPath = java
	}
	if mode := os.Getenv("TNM_DOCKER_MODE"); mode != "" {
		if b, err := strconv.ParseBool(mode); err == nil {
			cfg.Mining.DockerMode = b
		}
	}
	if name := os.Getenv("TNM_CONTAINER_NAME"); name != "" {
		cfg.Mining.ContainerName = name
	}
	if prefix := os.Getenv("TNM_RUN_SCRIPT"); prefix != "" {
		cfg.Mining.CommandPrefix = prefix
	}
	if timeout := os.Getenv("TNM_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Mining.Timeout = d
		}
	}
	if dsn := os.Getenv("SECUFLOW_POSTGRES_DSN"); dsn != "" {
		cfg.Storage.Type = "postgres"
		cfg.Storage.PostgresDSN = dsn
	}
}
