package models

import "time"

// IssueStatus is the lifecycle state of a reported issue.
type IssueStatus string

const (
	// IssueStatusOpen marks a freshly reported, unhandled issue.
	IssueStatusOpen IssueStatus = "open"
	// IssueStatusInProgress marks an issue that is being worked on.
	IssueStatusInProgress IssueStatus = "in_progress"
	// IssueStatusResolved marks a completed issue.
	IssueStatusResolved IssueStatus = "resolved"
)

// ValidIssueStatus reports whether the given status is a known issue status.
func ValidIssueStatus(s IssueStatus) bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved:
		return true
	default:
		return false
	}
}

// Issue severity levels, used as weights in the per-unit heat map.
const (
	SeverityLow    = 1
	SeverityMedium = 2
	SeverityHigh   = 3
)

// Issue represents a problem reported by a tenant for a unit in a building
// (e.g. a broken elevator or a leaking pipe).
type Issue struct {
	// ID is the unique identifier for the issue.
	ID uint64 `gorm:"primaryKey"`
	// ReferenceCode is a short human-readable code for support conversations.
	ReferenceCode string `gorm:"size:20;unique;not null"`
	// BuildingID is the ID of the building the issue belongs to.
	BuildingID uint64 `gorm:"not null;index"`
	// UnitID is the ID of the affected unit.
	UnitID uint64 `gorm:"not null;index"`
	// ReporterID is the ID of the reporting user.
	ReporterID uint64 `gorm:"not null;index"`
	// Title is a one-line summary.
	Title string `gorm:"size:200;not null"`
	// Description is the full issue description.
	Description string `gorm:"type:text"`
	// Category groups issues for filtering (e.g. "plumbing", "electrical").
	Category string `gorm:"size:50"`
	// Severity weights the issue in analytics (1 low, 2 medium, 3 high).
	Severity int `gorm:"not null;default:1"`
	// Status is the lifecycle state.
	Status IssueStatus `gorm:"type:varchar(20);not null;default:'open'"`
	// Building is the associated building (loaded via foreign key).
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	// Unit is the affected unit (loaded via foreign key).
	Unit Unit `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE"`
	// Reporter is the reporting user (loaded via foreign key).
	Reporter User `gorm:"foreignKey:ReporterID"`
	// ResolvedAt is when the issue reached the resolved state.
	ResolvedAt *time.Time
	// CreatedAt is the timestamp when the issue was reported (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the issue was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Issue model.
// This overrides GORM's default pluralized table naming.
func (Issue) TableName() string {
	return "issues"
}
