package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/secuflow/secuflow-go/internal/config"
	"github.com/secuflow/secuflow-go/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// SnapshotRow pairs a contributor identity with its per-project statistics
// for one ingestion pass.
type SnapshotRow struct {
	Login string
	Email string
	Stats models.ProjectContributor
}

// Store defines the storage interface. TA/TD/CA edge sets follow
// full-replace semantics per mining run; coordination runs and their CR
// edges are append-only history.
type Store interface {
	// Credential metadata (secrets live in the OS keychain)
	SaveCredential(ctx context.Context, cred *models.Credential) error
	ActiveCredential(ctx context.Context, owner string, provider models.Provider) (*models.Credential, error)
	RecordCredentialUse(ctx context.Context, id string, usedAt time.Time, lastError string) error
	DeleteCredential(ctx context.Context, id string) error
	ListCredentials(ctx context.Context, owner string) ([]models.Credential, error)

	// Contributor snapshots
	SaveContributorSnapshot(ctx context.Context, projectID, branch string, rows []SnapshotRow) (created, updated int, err error)
	ListProjectContributors(ctx context.Context, projectID, branch string) ([]models.ProjectContributor, error)
	SetContributorRoles(ctx context.Context, projectID string, logins []string, role models.FunctionalRole, isCore *bool) (int, error)

	// Code files, created on first sighting and never deleted
	UpsertCodeFiles(ctx context.Context, projectID string, files []models.CodeFile) (int, error)
	ListCodeFiles(ctx context.Context, projectID string) ([]models.CodeFile, error)

	// Graph edge sets
	ReplaceTaEntries(ctx context.Context, projectID string, entries []models.TaEntry) error
	TaEntries(ctx context.Context, projectID string) ([]models.TaEntry, error)
	ReplaceTdEdges(ctx context.Context, projectID string, edges []models.TdEdge) error
	TdEdges(ctx context.Context, projectID string) ([]models.TdEdge, error)
	ReplaceCaEdges(ctx context.Context, projectID string, edges []models.CaEdge) error
	CaEdges(ctx context.Context, projectID string) ([]models.CaEdge, error)

	// Mining runs
	CreateMiningRun(ctx context.Context, run *models.MiningRun) error
	UpdateMiningRun(ctx context.Context, run *models.MiningRun) error
	GetMiningRun(ctx context.Context, id string) (*models.MiningRun, error)
	ListMiningRuns(ctx context.Context, projectID string, limit int) ([]models.MiningRun, error)

	// Coordination runs, append-only
	SaveCoordinationRun(ctx context.Context, run *models.CoordinationRun, edges []models.CrEdge) error
	ListCoordinationRuns(ctx context.Context, projectID string, limit int) ([]models.CoordinationRun, error)
	CrEdges(ctx context.Context, runID string) ([]models.CrEdge, error)

	Close() error
}

// New builds a Store from configuration.
func New(cfg config.StorageConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteStore(cfg.LocalPath, logger)
	case "postgres":
		return NewPostgresStore(cfg.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
