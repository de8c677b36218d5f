package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SyncCursor is the per-folder resumption bookkeeping. It is written in the
// same transaction as the page it describes.
type SyncCursor struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Folder    string    `gorm:"column:folder;type:varchar(255);not null;uniqueIndex:idx_sync_cursors_folder" json:"folder"`
	PageToken string    `gorm:"column:page_token;type:text;not null;default:''" json:"page_token"`
	Completed bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	LastRunID uuid.UUID `gorm:"column:last_run_id;type:varchar(36)" json:"last_run_id"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

func (SyncCursor) TableName() string { return "sync_cursors" }

type SyncMode string

const (
	SyncModeResume SyncMode = "resume"
	SyncModeFresh  SyncMode = "fresh"
	SyncModeForce  SyncMode = "force"
)

// SyncRun is the audit row for one reconciliation run.
type SyncRun struct {
	ID            uuid.UUID      `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Mode          SyncMode       `gorm:"column:mode;type:varchar(16);not null" json:"mode"`
	StartedAt     time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt    *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Added         int            `gorm:"column:added;not null;default:0" json:"added"`
	Skipped       int            `gorm:"column:skipped;not null;default:0" json:"skipped"`
	Updated       int            `gorm:"column:updated;not null;default:0" json:"updated"`
	RateLimited   bool           `gorm:"column:rate_limited;not null;default:false" json:"rate_limited"`
	Cancelled     bool           `gorm:"column:cancelled;not null;default:false" json:"cancelled"`
	FailedFolders datatypes.JSON `gorm:"column:failed_folders" json:"failed_folders,omitempty"`
}

func (SyncRun) TableName() string { return "sync_runs" }

type FolderFailure struct {
	Folder string `json:"folder"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// SyncReport summarises one run. A partial run is not an error: MoreRemaining
// tells the caller that another run will pick up where this one stopped.
type SyncReport struct {
	RunID         uuid.UUID       `json:"run_id"`
	Mode          SyncMode        `json:"mode"`
	Added         int             `json:"added"`
	Skipped       int             `json:"skipped"`
	Updated       int             `json:"updated"`
	RateLimited   bool            `json:"rate_limited"`
	Cancelled     bool            `json:"cancelled"`
	MoreRemaining bool            `json:"more_remaining"`
	FoldersDone   []string        `json:"folders_done"`
	FailedFolders []FolderFailure `json:"failed_folders,omitempty"`
}
