package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/secuflow/secuflow-go/internal/mining"
	"github.com/secuflow/secuflow-go/internal/models"
	"github.com/secuflow/secuflow-go/internal/storage"
)

// NormalizeLogin derives a contributor login from a commit email. Hosted
// noreply addresses of the form <id>+<login>@users.noreply.<host> yield the
// login segment; everything else yields the local part.
func NormalizeLogin(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if strings.Contains(domain, "users.noreply") {
		parts := strings.SplitN(local, "+", 2)
		if len(parts) == 2 {
			return parts[1]
		}
		return parts[0]
	}
	return local
}

// fileExtension buckets a path by its extension for the type breakdown.
func fileExtension(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 && idx < len(path)-1 {
		return strings.ToLower(path[idx+1:])
	}
	return "no_ext"
}

// Stats is the per-contributor aggregate computed from the assignment matrix.
type Stats struct {
	FilesModified      int
	TotalModifications int
	AvgModsPerFile     float64
	FileTypes          map[string]int
}

// computeStats aggregates one contributor's row of the assignment matrix.
// The average is rounded to two decimals.
func computeStats(row map[string]int, idToFile map[string]string) Stats {
	stats := Stats{
		FilesModified: len(row),
		FileTypes:     map[string]int{},
	}
	for fileID, mods := range row {
		stats.TotalModifications += mods
		stats.FileTypes[fileExtension(idToFile[fileID])] += mods
	}
	if stats.FilesModified > 0 {
		avg := float64(stats.TotalModifications) / float64(stats.FilesModified)
		stats.AvgModsPerFile = math.Round(avg*100) / 100
	}
	return stats
}

// suggestRole classifies a contributor from activity patterns. Deep changes
// across many files look like coding; broad shallow changes look like review.
func suggestRole(s Stats) (models.FunctionalRole, float64) {
	switch {
	case s.TotalModifications >= 100 && s.FilesModified >= 10:
		if s.AvgModsPerFile > 5 {
			return models.RoleCoder, 0.8
		}
		return models.RoleReviewer, 0.7
	case s.TotalModifications >= 50:
		return models.RoleCoder, 0.6
	case s.TotalModifications >= 10:
		return models.RoleReviewer, 0.5
	default:
		return models.RoleUnclassified, 0.3
	}
}

// Summary reports one ingestion pass.
type Summary struct {
	TotalContributors   int
	ContributorsCreated int
	ContributorsUpdated int
	TaEntries           int
	Branch              string
	AnalyzedAt          time.Time
}

// Ingester turns mining artifacts into contributor snapshots and
// task-assignment entries.
type Ingester struct {
	store storage.Store
	log   *logrus.Logger
}

func NewIngester(store storage.Store, log *logrus.Logger) *Ingester {
	return &Ingester{store: store, log: log}
}

// IngestAssignment processes the assignment-miner output for one branch:
// contributor snapshots (with role suggestions and file-type breakdown) and
// the full-replace TA entry set. Snapshot rows that fail are skipped
// individually inside the storage transaction.
func (i *Ingester) IngestAssignment(ctx context.Context, projectID, branch string, out *mining.AssignmentOutput) (*Summary, error) {
	if branch == "" {
		branch = "unknown"
	}
	analyzedAt := time.Now().UTC()

	rows := make([]storage.SnapshotRow, 0, len(out.IDToUser))
	var taEntries []models.TaEntry

	userIDs := make([]string, 0, len(out.IDToUser))
	for userID := range out.IDToUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	for _, userID := range userIDs {
		email := out.IDToUser[userID]
		login := NormalizeLogin(email)
		stats := computeStats(out.AssignmentMatrix[userID], out.IDToFile)
		role, confidence := suggestRole(stats)

		breakdown, err := json.Marshal(stats.FileTypes)
		if err != nil {
			i.log.WithError(err).WithField("login", login).Error("failed to encode file-type breakdown, skipping")
			continue
		}

		rows = append(rows, storage.SnapshotRow{
			Login: login,
			Email: email,
			Stats: models.ProjectContributor{
				FilesModified:      stats.FilesModified,
				TotalModifications: stats.TotalModifications,
				AvgModsPerFile:     stats.AvgModsPerFile,
				FunctionalRole:     role,
				RoleConfidence:     confidence,
				IsCoreContributor:  stats.TotalModifications >= 100,
				FileTypeBreakdown:  string(breakdown),
				LastAnalysisAt:     analyzedAt,
			},
		})

		for fileID, mods := range out.AssignmentMatrix[userID] {
			file := out.IDToFile[fileID]
			if file == "" {
				file = fileID
			}
			taEntries = append(taEntries, models.TaEntry{
				ProjectID:   projectID,
				Contributor: login,
				File:        file,
				EditCount:   mods,
			})
		}
	}

	created, updated, err := i.store.SaveContributorSnapshot(ctx, projectID, branch, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to save contributor snapshot: %w", err)
	}
	if err := i.store.ReplaceTaEntries(ctx, projectID, taEntries); err != nil {
		return nil, fmt.Errorf("failed to replace task assignments: %w", err)
	}
	if err := i.sightCodeFiles(ctx, projectID, out.IDToFile); err != nil {
		return nil, err
	}

	i.log.WithFields(logrus.Fields{
		"project":      projectID,
		"branch":       branch,
		"contributors": len(rows),
		"ta_entries":   len(taEntries),
	}).Info("assignment ingestion complete")

	return &Summary{
		TotalContributors:   len(out.IDToUser),
		ContributorsCreated: created,
		ContributorsUpdated: updated,
		TaEntries:           len(taEntries),
		Branch:              branch,
		AnalyzedAt:          analyzedAt,
	}, nil
}

// IngestDependencies converts the file-dependency matrix into the
// full-replace TD edge set, translating ids to paths and collapsing both
// orientations into canonical undirected edges.
func (i *Ingester) IngestDependencies(ctx context.Context, projectID string, matrix map[string]map[string]int, idToFile map[string]string) (int, error) {
	// The miner emits a symmetric matrix; both orientations collapse into
	// one canonical edge carrying the larger weight.
	merged := map[[2]string]int{}
	for aID, row := range matrix {
		for bID, weight := range row {
			if weight <= 0 || aID == bID {
				continue
			}
			a, b := idToFile[aID], idToFile[bID]
			if a == "" {
				a = aID
			}
			if b == "" {
				b = bID
			}
			a, b = models.CanonicalPair(a, b)
			if a == b {
				continue
			}
			key := [2]string{a, b}
			if weight > merged[key] {
				merged[key] = weight
			}
		}
	}
	edges := make([]models.TdEdge, 0, len(merged))
	for pair, weight := range merged {
		edges = append(edges, models.TdEdge{ProjectID: projectID, FileA: pair[0], FileB: pair[1], Weight: weight})
	}
	if err := i.store.ReplaceTdEdges(ctx, projectID, edges); err != nil {
		return 0, fmt.Errorf("failed to replace technical dependencies: %w", err)
	}
	if err := i.sightCodeFiles(ctx, projectID, idToFile); err != nil {
		return 0, err
	}
	return len(edges), nil
}

// sightCodeFiles registers every path from a miner id map as a code file.
// Files are created on first sighting and kept forever; replacing an edge
// set never deletes them.
func (i *Ingester) sightCodeFiles(ctx context.Context, projectID string, idToFile map[string]string) error {
	files := make([]models.CodeFile, 0, len(idToFile))
	for _, path := range idToFile {
		if path == "" {
			continue
		}
		files = append(files, models.CodeFile{
			ProjectID: projectID,
			Path:      path,
			Language:  fileExtension(path),
		})
	}
	sort.Slice(files, func(a, b int) bool { return files[a].Path < files[b].Path })

	created, err := i.store.UpsertCodeFiles(ctx, projectID, files)
	if err != nil {
		return fmt.Errorf("failed to register code files: %w", err)
	}
	if created > 0 {
		i.log.WithFields(logrus.Fields{
			"project": projectID,
			"created": created,
		}).Debug("new code files sighted")
	}
	return nil
}
