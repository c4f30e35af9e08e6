package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements storage using PostgreSQL (for shared deployments)
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	store := &PostgresStore{sqlStore{db: db, logger: logger}}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		provider TEXT NOT NULL,
		credential_type TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at TIMESTAMPTZ,
		last_used_at TIMESTAMPTZ,
		use_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (owner, provider, credential_type)
	);

	CREATE TABLE IF NOT EXISTS contributors (
		id TEXT PRIMARY KEY,
		login TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS project_contributors (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		contributor_id TEXT NOT NULL REFERENCES contributors(id),
		login TEXT NOT NULL,
		branch TEXT NOT NULL,
		files_modified INTEGER NOT NULL DEFAULT 0,
		total_modifications INTEGER NOT NULL DEFAULT 0,
		avg_mods_per_file DOUBLE PRECISION NOT NULL DEFAULT 0,
		functional_role TEXT NOT NULL DEFAULT 'unclassified',
		role_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_core_contributor BOOLEAN NOT NULL DEFAULT FALSE,
		file_type_breakdown TEXT NOT NULL DEFAULT '{}',
		last_analysis_at TIMESTAMPTZ NOT NULL,
		UNIQUE (project_id, contributor_id, branch)
	);

	CREATE TABLE IF NOT EXISTS code_files (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		path TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		loc INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (project_id, path)
	);

	CREATE TABLE IF NOT EXISTS ta_entries (
		project_id TEXT NOT NULL,
		contributor TEXT NOT NULL,
		file TEXT NOT NULL,
		edit_count INTEGER NOT NULL,
		PRIMARY KEY (project_id, contributor, file)
	);

	CREATE TABLE IF NOT EXISTS td_edges (
		project_id TEXT NOT NULL,
		file_a TEXT NOT NULL,
		file_b TEXT NOT NULL,
		weight INTEGER NOT NULL,
		PRIMARY KEY (project_id, file_a, file_b),
		CHECK (file_a < file_b)
	);

	CREATE TABLE IF NOT EXISTS ca_edges (
		project_id TEXT NOT NULL,
		contributor_i TEXT NOT NULL,
		contributor_j TEXT NOT NULL,
		weight INTEGER NOT NULL,
		evidence TEXT NOT NULL,
		PRIMARY KEY (project_id, contributor_i, contributor_j),
		CHECK (contributor_i < contributor_j)
	);

	CREATE TABLE IF NOT EXISTS mining_runs (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		repo_url TEXT NOT NULL,
		branch TEXT NOT NULL,
		command TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		output_dir TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS coordination_runs (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		td_source TEXT NOT NULL,
		ca_source TEXT NOT NULL DEFAULT '',
		class_config TEXT NOT NULL DEFAULT '',
		score DOUBLE PRECISION NOT NULL,
		cr_count INTEGER NOT NULL,
		diff_count INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cr_edges (
		run_id TEXT NOT NULL REFERENCES coordination_runs(id),
		contributor_i TEXT NOT NULL,
		contributor_j TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, contributor_i, contributor_j),
		CHECK (contributor_i < contributor_j)
	);

	CREATE INDEX IF NOT EXISTS idx_pc_project ON project_contributors(project_id, branch);
	CREATE INDEX IF NOT EXISTS idx_mining_runs_project ON mining_runs(project_id);
	CREATE INDEX IF NOT EXISTS idx_coordination_runs_project ON coordination_runs(project_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
