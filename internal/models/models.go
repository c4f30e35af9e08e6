package models

import (
	"time"
)

// Provider identifies a git hosting provider, inferred from the repository URL host.
type Provider string

const (
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderBitbucket Provider = "bitbucket"
	ProviderGeneric   Provider = "generic"
)

// CredentialType is the kind of secret a credential carries.
type CredentialType string

const (
	CredentialHTTPSToken CredentialType = "https_token"
	CredentialBasicAuth  CredentialType = "basic_auth"
	CredentialSSHKey     CredentialType = "ssh_key"
)

// Credential is the metadata row for a stored git credential.
// The secret itself lives in the OS keychain; only usage metadata persists here.
type Credential struct {
	ID         string         `db:"id"`
	Owner      string         `db:"owner"`
	Provider   Provider       `db:"provider"`
	Type       CredentialType `db:"credential_type"`
	Username   string         `db:"username"`
	IsActive   bool           `db:"is_active"`
	ExpiresAt  *time.Time     `db:"expires_at"`
	LastUsedAt *time.Time     `db:"last_used_at"`
	UseCount   int            `db:"use_count"`
	LastError  string         `db:"last_error"`
	CreatedAt  time.Time      `db:"created_at"`
}

// Expired reports whether the credential has an expiry in the past.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// RunStatus is the lifecycle state of a mining run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// DataType selects which miners a trigger runs.
type DataType string

const (
	DataAssignmentMatrix    DataType = "assignment_matrix"
	DataFileDependency      DataType = "file_dependency"
	DataCoordinationMinimal DataType = "coordination_minimal"
)

// Valid reports whether dt is a known data type. Triggers with unknown data
// types are rejected before any external process starts.
func (dt DataType) Valid() bool {
	switch dt {
	case DataAssignmentMatrix, DataFileDependency, DataCoordinationMinimal:
		return true
	}
	return false
}

// MiningRun records one invocation of the external mining tool.
type MiningRun struct {
	ID         string     `db:"id"`
	ProjectID  string     `db:"project_id"`
	RepoURL    string     `db:"repo_url"`
	Branch     string     `db:"branch"`
	Command    string     `db:"command"`
	Options    string     `db:"options"`
	Status     RunStatus  `db:"status"`
	Error      string     `db:"error"`
	OutputDir  string     `db:"output_dir"`
	CreatedAt  time.Time  `db:"created_at"`
	StartedAt  *time.Time `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// FunctionalRole is the coarse behavioral classification of a contributor.
type FunctionalRole string

const (
	RoleCoder        FunctionalRole = "coder"
	RoleReviewer     FunctionalRole = "reviewer"
	RoleUnclassified FunctionalRole = "unclassified"
)

// Valid reports whether r is a known role.
func (r FunctionalRole) Valid() bool {
	switch r {
	case RoleCoder, RoleReviewer, RoleUnclassified:
		return true
	}
	return false
}

// ActivityLevel buckets contributors by total modification volume.
type ActivityLevel string

const (
	ActivityHigh    ActivityLevel = "high"
	ActivityMedium  ActivityLevel = "medium"
	ActivityLow     ActivityLevel = "low"
	ActivityMinimal ActivityLevel = "minimal"
)

// ActivityLevelFor maps a total modification count to its activity bucket.
func ActivityLevelFor(totalModifications int) ActivityLevel {
	switch {
	case totalModifications >= 1000:
		return ActivityHigh
	case totalModifications >= 100:
		return ActivityMedium
	case totalModifications >= 10:
		return ActivityLow
	default:
		return ActivityMinimal
	}
}

// Contributor is a person sighted in commit history, keyed by normalized login.
// Created lazily on first sighting, never deleted.
type Contributor struct {
	ID        string    `db:"id"`
	Login     string    `db:"login"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

// ProjectContributor is the per-project aggregated snapshot for a contributor.
// It reflects only the latest successful mining run for a branch.
type ProjectContributor struct {
	ID                 string         `db:"id"`
	ProjectID          string         `db:"project_id"`
	ContributorID      string         `db:"contributor_id"`
	Login              string         `db:"login"`
	Branch             string         `db:"branch"`
	FilesModified      int            `db:"files_modified"`
	TotalModifications int            `db:"total_modifications"`
	AvgModsPerFile     float64        `db:"avg_mods_per_file"`
	FunctionalRole     FunctionalRole `db:"functional_role"`
	RoleConfidence     float64        `db:"role_confidence"`
	IsCoreContributor  bool           `db:"is_core_contributor"`
	FileTypeBreakdown  string         `db:"file_type_breakdown"`
	LastAnalysisAt     time.Time      `db:"last_analysis_at"`
}

// Activity returns the contributor's activity bucket.
func (pc *ProjectContributor) Activity() ActivityLevel {
	return ActivityLevelFor(pc.TotalModifications)
}

// CodeFile is a source file sighted in mining output, unique per project
// path. Created lazily on first sighting, never deleted; rows outlive the
// edge sets that referenced them.
type CodeFile struct {
	ID        string    `db:"id"`
	ProjectID string    `db:"project_id"`
	Path      string    `db:"path"`
	Language  string    `db:"language"`
	LOC       int       `db:"loc"`
	CreatedAt time.Time `db:"created_at"`
}

// TaEntry is a task-assignment edge: contributor x file with edit count.
type TaEntry struct {
	ProjectID   string `db:"project_id"`
	Contributor string `db:"contributor"`
	File        string `db:"file"`
	EditCount   int    `db:"edit_count"`
}

// TdEdge is an undirected technical-dependency edge between two files,
// weighted by co-change. FileA < FileB always holds.
type TdEdge struct {
	ProjectID string `db:"project_id"`
	FileA     string `db:"file_a"`
	FileB     string `db:"file_b"`
	Weight    int    `db:"weight"`
}

// Evidence tags how a coordination-activity edge was observed.
type Evidence string

const (
	EvidenceSameCommit Evidence = "same_commit"
	EvidenceSameFile   Evidence = "same_file"
	EvidenceCoEdit     Evidence = "co_edit"
)

// Valid reports whether e is a known evidence tag.
func (e Evidence) Valid() bool {
	switch e {
	case EvidenceSameCommit, EvidenceSameFile, EvidenceCoEdit:
		return true
	}
	return false
}

// CaEdge is an undirected coordination-activity edge between contributors.
// ContributorI < ContributorJ always holds.
type CaEdge struct {
	ProjectID    string   `db:"project_id"`
	ContributorI string   `db:"contributor_i"`
	ContributorJ string   `db:"contributor_j"`
	Weight       int      `db:"weight"`
	Evidence     Evidence `db:"evidence"`
}

// CrEdge is an undirected coordination-requirement edge, materialized per
// coordination run as its explanation trail. ContributorI < ContributorJ.
type CrEdge struct {
	RunID        string  `db:"run_id"`
	ContributorI string  `db:"contributor_i"`
	ContributorJ string  `db:"contributor_j"`
	Weight       float64 `db:"weight"`
}

// Algorithm selects the congruence computation.
type Algorithm string

const (
	AlgoSTC   Algorithm = "STC"
	AlgoMCSTC Algorithm = "MC-STC"
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a == AlgoSTC || a == AlgoMCSTC
}

// TdSource names where technical dependencies came from.
type TdSource string

const (
	TdLogical   TdSource = "LD" // co-change
	TdSyntactic TdSource = "SD"
)

// CoordinationRun is one congruence computation, append-only history.
type CoordinationRun struct {
	ID          string    `db:"id"`
	ProjectID   string    `db:"project_id"`
	Algorithm   Algorithm `db:"algorithm"`
	TdSource    TdSource  `db:"td_source"`
	CaSource    string    `db:"ca_source"`
	ClassConfig string    `db:"class_config"`
	Score       float64   `db:"score"`
	CrCount     int       `db:"cr_count"`
	DiffCount   int       `db:"diff_count"`
	CreatedAt   time.Time `db:"created_at"`
}

// CanonicalPair orders an undirected pair so a < b. All TD/CA/CR edges are
// stored in this orientation; inserting the reverse normalizes to it.
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// Branch describes one branch of a local repository.
type Branch struct {
	Name       string `json:"name"`
	IsCurrent  bool   `json:"is_current"`
	CommitHash string `json:"commit_hash"`
	BranchID   string `json:"branch_id"`
}
