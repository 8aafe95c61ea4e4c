package report

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Building{},
		&models.Unit{},
		&models.Issue{},
	)
	require.NoError(t, err)

	return db
}

func seedBuilding(t *testing.T, db *gorm.DB) (models.Building, []models.Unit, models.User) {
	t.Helper()

	building := models.Building{Name: "Main St 1"}
	require.NoError(t, db.Create(&building).Error)

	units := []models.Unit{
		{BuildingID: building.ID, Number: "1A", Floor: 1},
		{BuildingID: building.ID, Number: "2B", Floor: 2},
		{BuildingID: building.ID, Number: "3C", Floor: 3},
	}
	for i := range units {
		require.NoError(t, db.Create(&units[i]).Error)
	}

	reporter := models.User{Active: true, Username: "tenant", Email: "tenant@example.com"}
	require.NoError(t, db.Create(&reporter).Error)

	return building, units, reporter
}

var issueSeq int

func createIssue(
	t *testing.T, db *gorm.DB,
	building models.Building, unit models.Unit, reporter models.User,
	severity int, status models.IssueStatus,
) {
	t.Helper()

	issueSeq++

	issue := models.Issue{
		ReferenceCode: fmt.Sprintf("ISS-TEST%04d", issueSeq),
		BuildingID:    building.ID,
		UnitID:        unit.ID,
		ReporterID:    reporter.ID,
		Title:         "test issue",
		Severity:      severity,
		Status:        status,
	}
	require.NoError(t, db.Create(&issue).Error)
}

func TestHeatMapWeighting(t *testing.T) {
	db := newTestDB(t)
	building, units, reporter := seedBuilding(t, db)

	// 1A: one open high severity issue -> 3*2 = 6
	createIssue(t, db, building, units[0], reporter, models.SeverityHigh, models.IssueStatusOpen)
	// 2B: one in-progress medium -> 2*1 = 2, one resolved (ignored)
	createIssue(t, db, building, units[1], reporter, models.SeverityMedium, models.IssueStatusInProgress)
	createIssue(t, db, building, units[1], reporter, models.SeverityHigh, models.IssueStatusResolved)
	// 3C: nothing

	rows, err := HeatMap(db, building.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3, "every unit appears, even without issues")

	// sorted by score descending
	assert.Equal(t, "1A", rows[0].UnitNumber)
	assert.Equal(t, 6, rows[0].Score)
	assert.Equal(t, 1, rows[0].OpenCount)

	assert.Equal(t, "2B", rows[1].UnitNumber)
	assert.Equal(t, 2, rows[1].Score)
	assert.Equal(t, 1, rows[1].InProgressCount)
	assert.Equal(t, 0, rows[1].OpenCount)

	assert.Equal(t, "3C", rows[2].UnitNumber)
	assert.Equal(t, 0, rows[2].Score)
}

func TestHeatMapScopedToBuilding(t *testing.T) {
	db := newTestDB(t)
	building, units, reporter := seedBuilding(t, db)

	other := models.Building{Name: "Oak Ave 2"}
	require.NoError(t, db.Create(&other).Error)

	otherUnit := models.Unit{BuildingID: other.ID, Number: "9Z", Floor: 9}
	require.NoError(t, db.Create(&otherUnit).Error)

	createIssue(t, db, building, units[0], reporter, models.SeverityLow, models.IssueStatusOpen)
	createIssue(t, db, other, otherUnit, reporter, models.SeverityHigh, models.IssueStatusOpen)

	rows, err := HeatMap(db, building.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for _, row := range rows {
		assert.NotEqual(t, "9Z", row.UnitNumber)
	}
}

func TestSummary(t *testing.T) {
	db := newTestDB(t)
	building, units, reporter := seedBuilding(t, db)

	createIssue(t, db, building, units[0], reporter, models.SeverityLow, models.IssueStatusOpen)
	createIssue(t, db, building, units[0], reporter, models.SeverityLow, models.IssueStatusOpen)
	createIssue(t, db, building, units[1], reporter, models.SeverityMedium, models.IssueStatusInProgress)
	createIssue(t, db, building, units[2], reporter, models.SeverityHigh, models.IssueStatusResolved)

	summary, err := Summary(db, building.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Open)
	assert.Equal(t, int64(1), summary.InProgress)
	assert.Equal(t, int64(1), summary.Resolved)
}

func TestSummaryEmptyBuilding(t *testing.T) {
	db := newTestDB(t)
	building, _, _ := seedBuilding(t, db)

	summary, err := Summary(db, building.ID)
	require.NoError(t, err)
	assert.Equal(t, IssueSummary{}, summary)
}

func TestNilDB(t *testing.T) {
	_, err := HeatMap(nil, 1)
	assert.ErrorIs(t, err, ErrDBNil)

	_, err = Summary(nil, 1)
	assert.ErrorIs(t, err, ErrDBNil)
}
