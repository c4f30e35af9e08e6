package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/secuflow/secuflow-go/internal/models"
)

// sqlStore is the driver-independent core shared by the SQLite and Postgres
// stores. Queries use ? placeholders and are rebound per driver.
type sqlStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// Credential metadata

func (s *sqlStore) SaveCredential(ctx context.Context, cred *models.Credential) error {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	query := s.db.Rebind(`
		INSERT INTO credentials
		(id, owner, provider, credential_type, username, is_active,
		 expires_at, last_used_at, use_count, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner, provider, credential_type) DO UPDATE SET
			username = excluded.username,
			is_active = excluded.is_active,
			expires_at = excluded.expires_at
	`)
	_, err := s.db.ExecContext(ctx, query,
		cred.ID, cred.Owner, cred.Provider, cred.Type, cred.Username, cred.IsActive,
		cred.ExpiresAt, cred.LastUsedAt, cred.UseCount, cred.LastError, cred.CreatedAt)
	return err
}

func (s *sqlStore) ActiveCredential(ctx context.Context, owner string, provider models.Provider) (*models.Credential, error) {
	var cred models.Credential
	query := s.db.Rebind(`
		SELECT * FROM credentials
		WHERE owner = ? AND provider = ? AND is_active = ?
		ORDER BY created_at DESC LIMIT 1
	`)
	err := s.db.GetContext(ctx, &cred, query, owner, provider, true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *sqlStore) RecordCredentialUse(ctx context.Context, id string, usedAt time.Time, lastError string) error {
	query := s.db.Rebind(`
		UPDATE credentials
		SET last_used_at = ?, use_count = use_count + 1, last_error = ?
		WHERE id = ?
	`)
	_, err := s.db.ExecContext(ctx, query, usedAt, lastError, id)
	return err
}

func (s *sqlStore) DeleteCredential(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM credentials WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) ListCredentials(ctx context.Context, owner string) ([]models.Credential, error) {
	var creds []models.Credential
	query := s.db.Rebind(`SELECT * FROM credentials WHERE owner = ? ORDER BY created_at`)
	if err := s.db.SelectContext(ctx, &creds, query, owner); err != nil {
		return nil, err
	}
	return creds, nil
}

// Contributor snapshots

func (s *sqlStore) SaveContributorSnapshot(ctx context.Context, projectID, branch string, rows []SnapshotRow) (int, int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	created, updated := 0, 0
	for _, row := range rows {
		contributorID, wasCreated, err := s.upsertContributor(ctx, tx, row.Login, row.Email)
		if err != nil {
			s.logger.WithError(err).WithField("login", row.Login).Error("failed to process contributor, skipping")
			continue
		}
		if wasCreated {
			created++
		}

		pc := row.Stats
		pc.ProjectID = projectID
		pc.ContributorID = contributorID
		pc.Login = row.Login
		pc.Branch = branch
		wasNew, err := s.upsertProjectContributor(ctx, tx, &pc)
		if err != nil {
			s.logger.WithError(err).WithField("login", row.Login).Error("failed to save contributor snapshot, skipping")
			continue
		}
		if !wasNew {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (s *sqlStore) upsertContributor(ctx context.Context, tx *sqlx.Tx, login, email string) (string, bool, error) {
	var existing models.Contributor
	err := tx.GetContext(ctx, &existing, tx.Rebind(`SELECT * FROM contributors WHERE login = ?`), login)
	if err == nil {
		if existing.Email == "" && email != "" {
			_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE contributors SET email = ? WHERE id = ?`), email, existing.ID)
			if err != nil {
				return "", false, err
			}
		}
		return existing.ID, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, err
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO contributors (id, login, email, created_at) VALUES (?, ?, ?, ?)
	`), id, login, email, time.Now().UTC())
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *sqlStore) upsertProjectContributor(ctx context.Context, tx *sqlx.Tx, pc *models.ProjectContributor) (bool, error) {
	var existingID string
	err := tx.GetContext(ctx, &existingID, tx.Rebind(`
		SELECT id FROM project_contributors
		WHERE project_id = ? AND contributor_id = ? AND branch = ?
	`), pc.ProjectID, pc.ContributorID, pc.Branch)

	if err == sql.ErrNoRows {
		pc.ID = uuid.NewString()
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO project_contributors
			(id, project_id, contributor_id, login, branch, files_modified,
			 total_modifications, avg_mods_per_file, functional_role,
			 role_confidence, is_core_contributor, file_type_breakdown, last_analysis_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), pc.ID, pc.ProjectID, pc.ContributorID, pc.Login, pc.Branch,
			pc.FilesModified, pc.TotalModifications, pc.AvgModsPerFile,
			pc.FunctionalRole, pc.RoleConfidence, pc.IsCoreContributor,
			pc.FileTypeBreakdown, pc.LastAnalysisAt)
		return true, err
	}
	if err != nil {
		return false, err
	}

	pc.ID = existingID
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE project_contributors SET
			login = ?, files_modified = ?, total_modifications = ?,
			avg_mods_per_file = ?, functional_role = ?, role_confidence = ?,
			is_core_contributor = ?, file_type_breakdown = ?, last_analysis_at = ?
		WHERE id = ?
	`), pc.Login, pc.FilesModified, pc.TotalModifications, pc.AvgModsPerFile,
		pc.FunctionalRole, pc.RoleConfidence, pc.IsCoreContributor,
		pc.FileTypeBreakdown, pc.LastAnalysisAt, existingID)
	return false, err
}

func (s *sqlStore) ListProjectContributors(ctx context.Context, projectID, branch string) ([]models.ProjectContributor, error) {
	var pcs []models.ProjectContributor
	query := `SELECT * FROM project_contributors WHERE project_id = ?`
	args := []interface{}{projectID}
	if branch != "" {
		query += ` AND branch = ?`
		args = append(args, branch)
	}
	query += ` ORDER BY total_modifications DESC`
	if err := s.db.SelectContext(ctx, &pcs, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return pcs, nil
}

func (s *sqlStore) SetContributorRoles(ctx context.Context, projectID string, logins []string, role models.FunctionalRole, isCore *bool) (int, error) {
	if len(logins) == 0 {
		return 0, nil
	}
	if !role.Valid() {
		return 0, fmt.Errorf("invalid functional role: %s", role)
	}

	query := `UPDATE project_contributors SET functional_role = ?`
	args := []interface{}{role}
	if isCore != nil {
		query += `, is_core_contributor = ?`
		args = append(args, *isCore)
	}
	query += ` WHERE project_id = ? AND login IN (?)`
	args = append(args, projectID, logins)

	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), expanded...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Code files

// UpsertCodeFiles inserts files not seen before for the project and reports
// how many were new. Existing rows keep their identity: replacing an edge
// set never removes a file.
func (s *sqlStore) UpsertCodeFiles(ctx context.Context, projectID string, files []models.CodeFile) (int, error) {
	created := 0
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		insert := tx.Rebind(`
			INSERT INTO code_files (id, project_id, path, language, loc, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (project_id, path) DO NOTHING
		`)
		now := time.Now().UTC()
		for _, f := range files {
			if f.Path == "" {
				continue
			}
			res, err := tx.ExecContext(ctx, insert, uuid.NewString(), projectID, f.Path, f.Language, f.LOC, now)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *sqlStore) ListCodeFiles(ctx context.Context, projectID string) ([]models.CodeFile, error) {
	var files []models.CodeFile
	query := s.db.Rebind(`SELECT * FROM code_files WHERE project_id = ? ORDER BY path`)
	if err := s.db.SelectContext(ctx, &files, query, projectID); err != nil {
		return nil, err
	}
	return files, nil
}

// Graph edge sets, full-replace per run

func (s *sqlStore) ReplaceTaEntries(ctx context.Context, projectID string, entries []models.TaEntry) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM ta_entries WHERE project_id = ?`), projectID); err != nil {
			return err
		}
		insert := tx.Rebind(`
			INSERT INTO ta_entries (project_id, contributor, file, edit_count)
			VALUES (?, ?, ?, ?)
		`)
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, insert, projectID, e.Contributor, e.File, e.EditCount); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqlStore) TaEntries(ctx context.Context, projectID string) ([]models.TaEntry, error) {
	var entries []models.TaEntry
	query := s.db.Rebind(`SELECT * FROM ta_entries WHERE project_id = ?`)
	if err := s.db.SelectContext(ctx, &entries, query, projectID); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *sqlStore) ReplaceTdEdges(ctx context.Context, projectID string, edges []models.TdEdge) error {
	// Normalize to canonical orientation, merging any reversed duplicates.
	merged := make(map[[2]string]int, len(edges))
	for _, e := range edges {
		a, b := models.CanonicalPair(e.FileA, e.FileB)
		if a == b {
			continue
		}
		merged[[2]string{a, b}] += e.Weight
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM td_edges WHERE project_id = ?`), projectID); err != nil {
			return err
		}
		insert := tx.Rebind(`
			INSERT INTO td_edges (project_id, file_a, file_b, weight)
			VALUES (?, ?, ?, ?)
		`)
		for pair, weight := range merged {
			if _, err := tx.ExecContext(ctx, insert, projectID, pair[0], pair[1], weight); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqlStore) TdEdges(ctx context.Context, projectID string) ([]models.TdEdge, error) {
	var edges []models.TdEdge
	query := s.db.Rebind(`SELECT * FROM td_edges WHERE project_id = ?`)
	if err := s.db.SelectContext(ctx, &edges, query, projectID); err != nil {
		return nil, err
	}
	return edges, nil
}

func (s *sqlStore) ReplaceCaEdges(ctx context.Context, projectID string, edges []models.CaEdge) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM ca_edges WHERE project_id = ?`), projectID); err != nil {
			return err
		}
		insert := tx.Rebind(`
			INSERT INTO ca_edges (project_id, contributor_i, contributor_j, weight, evidence)
			VALUES (?, ?, ?, ?, ?)
		`)
		for _, e := range edges {
			i, j := models.CanonicalPair(e.ContributorI, e.ContributorJ)
			if i == j {
				continue
			}
			if !e.Evidence.Valid() {
				return fmt.Errorf("invalid coordination evidence: %s", e.Evidence)
			}
			if _, err := tx.ExecContext(ctx, insert, projectID, i, j, e.Weight, e.Evidence); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqlStore) CaEdges(ctx context.Context, projectID string) ([]models.CaEdge, error) {
	var edges []models.CaEdge
	query := s.db.Rebind(`SELECT * FROM ca_edges WHERE project_id = ?`)
	if err := s.db.SelectContext(ctx, &edges, query, projectID); err != nil {
		return nil, err
	}
	return edges, nil
}

// Mining runs

func (s *sqlStore) CreateMiningRun(ctx context.Context, run *models.MiningRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.RunQueued
	}
	query := s.db.Rebind(`
		INSERT INTO mining_runs
		(id, project_id, repo_url, branch, command, options, status, error,
		 output_dir, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.ProjectID, run.RepoURL, run.Branch, run.Command, run.Options,
		run.Status, run.Error, run.OutputDir, run.CreatedAt, run.StartedAt, run.FinishedAt)
	return err
}

func (s *sqlStore) UpdateMiningRun(ctx context.Context, run *models.MiningRun) error {
	query := s.db.Rebind(`
		UPDATE mining_runs
		SET status = ?, error = ?, output_dir = ?, started_at = ?, finished_at = ?
		WHERE id = ?
	`)
	res, err := s.db.ExecContext(ctx, query,
		run.Status, run.Error, run.OutputDir, run.StartedAt, run.FinishedAt, run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) GetMiningRun(ctx context.Context, id string) (*models.MiningRun, error) {
	var run models.MiningRun
	err := s.db.GetContext(ctx, &run, s.db.Rebind(`SELECT * FROM mining_runs WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *sqlStore) ListMiningRuns(ctx context.Context, projectID string, limit int) ([]models.MiningRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.MiningRun
	query := s.db.Rebind(`
		SELECT * FROM mining_runs WHERE project_id = ?
		ORDER BY created_at DESC LIMIT ?
	`)
	if err := s.db.SelectContext(ctx, &runs, query, projectID, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

// Coordination runs

func (s *sqlStore) SaveCoordinationRun(ctx context.Context, run *models.CoordinationRun, edges []models.CrEdge) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if !run.Algorithm.Valid() {
		return fmt.Errorf("invalid algorithm: %s", run.Algorithm)
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO coordination_runs
			(id, project_id, algorithm, td_source, ca_source, class_config,
			 score, cr_count, diff_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), run.ID, run.ProjectID, run.Algorithm, run.TdSource, run.CaSource,
			run.ClassConfig, run.Score, run.CrCount, run.DiffCount, run.CreatedAt)
		if err != nil {
			return err
		}

		insert := tx.Rebind(`
			INSERT INTO cr_edges (run_id, contributor_i, contributor_j, weight)
			VALUES (?, ?, ?, ?)
		`)
		for _, e := range edges {
			i, j := models.CanonicalPair(e.ContributorI, e.ContributorJ)
			if i == j {
				continue
			}
			if _, err := tx.ExecContext(ctx, insert, run.ID, i, j, e.Weight); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqlStore) ListCoordinationRuns(ctx context.Context, projectID string, limit int) ([]models.CoordinationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.CoordinationRun
	query := s.db.Rebind(`
		SELECT * FROM coordination_runs WHERE project_id = ?
		ORDER BY created_at DESC LIMIT ?
	`)
	if err := s.db.SelectContext(ctx, &runs, query, projectID, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *sqlStore) CrEdges(ctx context.Context, runID string) ([]models.CrEdge, error) {
	var edges []models.CrEdge
	query := s.db.Rebind(`SELECT * FROM cr_edges WHERE run_id = ?`)
	if err := s.db.SelectContext(ctx, &edges, query, runID); err != nil {
		return nil, err
	}
	return edges, nil
}

func (s *sqlStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
