// Package report implements read-only analytics over the issue store.
package report

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/db/models"
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Status weights for the heat map score. An open issue weighs twice its
// severity, an in-progress issue once; resolved issues do not count.
const (
	openWeight       = 2
	inProgressWeight = 1
)

// UnitHeat is the aggregated issue load of one unit.
type UnitHeat struct {
	UnitID          uint64
	UnitNumber      string
	Floor           int
	OpenCount       int
	InProgressCount int
	// Score is the severity-weighted issue load used for heat map coloring.
	Score int
}

// HeatMap buckets unresolved issue counts per unit for one building,
// weighted by severity and status. Units without unresolved issues are
// included with a zero score so the map covers the whole building.
func HeatMap(db *gorm.DB, buildingID uint64) ([]UnitHeat, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rows []UnitHeat

	err := db.Model(&models.Unit{}).
		Select(
			"units.id AS unit_id, "+
				"units.number AS unit_number, "+
				"units.floor AS floor, "+
				"COALESCE(SUM(CASE WHEN issues.status = ? THEN 1 ELSE 0 END), 0) AS open_count, "+
				"COALESCE(SUM(CASE WHEN issues.status = ? THEN 1 ELSE 0 END), 0) AS in_progress_count, "+
				"COALESCE(SUM(CASE "+
				"WHEN issues.status = ? THEN issues.severity * ? "+
				"WHEN issues.status = ? THEN issues.severity * ? "+
				"ELSE 0 END), 0) AS score",
			string(models.IssueStatusOpen),
			string(models.IssueStatusInProgress),
			string(models.IssueStatusOpen), openWeight,
			string(models.IssueStatusInProgress), inProgressWeight,
		).
		Joins("LEFT JOIN issues ON issues.unit_id = units.id").
		Where("units.building_id = ?", buildingID).
		Group("units.id, units.number, units.floor").
		Order("score DESC, units.number ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate heat map: %w", err)
	}

	return rows, nil
}

// IssueSummary counts a building's issues per status.
type IssueSummary struct {
	Open       int64
	InProgress int64
	Resolved   int64
}

// Summary returns the per-status issue counts of one building.
func Summary(db *gorm.DB, buildingID uint64) (IssueSummary, error) {
	if db == nil {
		return IssueSummary{}, ErrDBNil
	}

	var out IssueSummary

	type row struct {
		Status string
		N      int64
	}

	var rows []row

	err := db.Model(&models.Issue{}).
		Select("status, COUNT(*) AS n").
		Where("building_id = ?", buildingID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return IssueSummary{}, fmt.Errorf("failed to count issues: %w", err)
	}

	for _, r := range rows {
		switch models.IssueStatus(r.Status) {
		case models.IssueStatusOpen:
			out.Open = r.N
		case models.IssueStatusInProgress:
			out.InProgress = r.N
		case models.IssueStatusResolved:
			out.Resolved = r.N
		}
	}

	return out, nil
}
