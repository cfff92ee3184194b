package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"relief-coordinator/internal/models"
)

func setupMockReportsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ReportsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewReportsRepository(db, logger)

	return db, mock, repo
}

func sampleReport() *models.Report {
	now := time.Now()
	return &models.Report{
		ReportID:     uuid.New().String(),
		Name:         "Riverside flooding",
		DisasterType: "flood",
		Message:      "River overflowed after heavy rain",
		Location:     models.Location{Lat: 19.07, Lng: 72.87},
		Status:       models.ReportPending,
		ReportedBy:   "anonymous",
		Requirements: models.RequirementSet{
			Food: &models.Requirement{Needed: true, Quantity: 100, RemainingNeeded: 100},
		},
		Donations: []models.DonationRecord{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateReport_Success(t *testing.T) {
	db, mock, repo := setupMockReportsDB(t)
	defer db.Close()

	report := sampleReport()

	mock.ExpectExec(`INSERT INTO reports`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateReport(context.Background(), report)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReport_MissingID(t *testing.T) {
	db, mock, repo := setupMockReportsDB(t)
	defer db.Close()

	report := sampleReport()
	report.ReportID = ""

	err := repo.CreateReport(context.Background(), report)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "report_id is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func reportRows(t *testing.T, report *models.Report) *sqlmock.Rows {
	requirementsJSON, err := json.Marshal(report.Requirements)
	require.NoError(t, err)
	donationsJSON, err := json.Marshal(report.Donations)
	require.NoError(t, err)

	return sqlmock.NewRows([]string{
		"report_id", "name", "disaster_type", "message", "lat", "lng",
		"status", "image", "reported_by", "requirements", "donations",
		"created_at", "updated_at",
	}).AddRow(
		report.ReportID, report.Name, report.DisasterType, report.Message,
		report.Location.Lat, report.Location.Lng, string(report.Status),
		nil, report.ReportedBy, requirementsJSON, donationsJSON,
		report.CreatedAt, report.UpdatedAt,
	)
}

func TestGetReport_Success(t *testing.T) {
	db, mock, repo := setupMockReportsDB(t)
	defer db.Close()

	report := sampleReport()

	mock.ExpectQuery(`SELECT`).
		WithArgs(report.ReportID).
		WillReturnRows(reportRows(t, report))

	got, err := repo.GetReport(context.Background(), report.ReportID)

	require.NoError(t, err)
	assert.Equal(t, report.ReportID, got.ReportID)
	assert.Equal(t, "flood", got.DisasterType)
	assert.Equal(t, models.ReportPending, got.Status)
	require.NotNil(t, got.Requirements.Food)
	assert.Equal(t, float64(100), got.Requirements.Food.Quantity)
	assert.Nil(t, got.Requirements.Water)
	assert.Empty(t, got.Donations)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReport_NotFound(t *testing.T) {
	db, mock, repo := setupMockReportsDB(t)
	defer db.Close()

	reportID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(reportID).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetReport(context.Background(), reportID)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReport_Success(t *testing.T) {
	db, mock, repo := setupMockReportsDB(t)
	defer db.Close()

	report := sampleReport()
	report.Status = models.ReportCritical

	mock.ExpectExec(`UPDATE reports`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateReport(context.Background(), report)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReport_NotFound(t *testing.T) {
	db, mock, repo := setupMockReportsDB(t)
	defer db.Close()

	report := sampleReport()

	mock.ExpectExec(`UPDATE reports`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateReport(context.Background(), report)

	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReport_Success(t *testing.T) {
	db, mock, repo := setupMockReportsDB(t)
	defer db.Close()

	reportID := uuid.New().String()

	mock.ExpectExec(`DELETE FROM reports`).
		WithArgs(reportID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteReport(context.Background(), reportID)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReports_Success(t *testing.T) {
	db, mock, repo := setupMockReportsDB(t)
	defer db.Close()

	report := sampleReport()

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(reportRows(t, report))

	reports, err := repo.ListReports(context.Background())

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, report.ReportID, reports[0].ReportID)
	require.NoError(t, mock.ExpectationsWereMet())
}
