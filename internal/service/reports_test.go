package service

import (
	"context"
	"errors"
	"testing"

	"relief-coordinator/internal/ledger"
	"relief-coordinator/internal/models"
	"relief-coordinator/internal/reconciler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockReportStore is a mock implementation of ReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) CreateReport(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) GetReport(ctx context.Context, reportID string) (*models.Report, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportStore) UpdateReport(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) DeleteReport(ctx context.Context, reportID string) error {
	args := m.Called(ctx, reportID)
	return args.Error(0)
}

func (m *MockReportStore) ListReports(ctx context.Context) ([]*models.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Report), args.Error(1)
}

// MockUserStore is a mock implementation of UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockAlertDispatcher is a mock implementation of AlertDispatcher
type MockAlertDispatcher struct {
	mock.Mock
}

func (m *MockAlertDispatcher) Raise(ctx context.Context, alertType models.AlertType, title, message, reportID string) (*models.Alert, error) {
	args := m.Called(ctx, alertType, title, message, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockAlertDispatcher) ListAlertsFor(ctx context.Context, userID string) ([]*models.Alert, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Alert), args.Error(1)
}

func (m *MockAlertDispatcher) MarkSeen(ctx context.Context, alertID, userID string) error {
	args := m.Called(ctx, alertID, userID)
	return args.Error(0)
}

func (m *MockAlertDispatcher) SeenBy(ctx context.Context, alertID string) ([]models.SeenEntry, error) {
	args := m.Called(ctx, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SeenEntry), args.Error(1)
}

func (m *MockAlertDispatcher) Wait() {
	m.Called()
}

// MockDonationReconciler is a mock implementation of DonationReconciler
type MockDonationReconciler struct {
	mock.Mock
}

func (m *MockDonationReconciler) Pledge(ctx context.Context, in *reconciler.PledgeInput) (*models.DonationRecord, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DonationRecord), args.Error(1)
}

func (m *MockDonationReconciler) AdvanceStatus(ctx context.Context, reportID string, index int, next models.DonationStatus) error {
	args := m.Called(ctx, reportID, index, next)
	return args.Error(0)
}

func setupService() (*ReliefService, *MockReportStore, *MockUserStore, *MockAlertDispatcher, *MockDonationReconciler) {
	reports := new(MockReportStore)
	users := new(MockUserStore)
	alerts := new(MockAlertDispatcher)
	donations := new(MockDonationReconciler)
	svc := &ReliefService{
		logger:    zap.NewNop(),
		reports:   reports,
		users:     users,
		alerts:    alerts,
		donations: donations,
	}
	return svc, reports, users, alerts, donations
}

func validReportInput() *ReportInput {
	return &ReportInput{
		Name:         "Flood in Riverside",
		DisasterType: "flood",
		Message:      "Severe flooding along the river.",
		Location:     models.Location{Lat: 12.5, Lng: 77.6},
		ReportedBy:   "user-1",
		Requirements: &ledger.RequirementsInput{
			Food:  &ledger.CategoryInput{Needed: true, Quantity: 100},
			Other: &ledger.CategoryInput{Needed: true, Details: "Rescue boats"},
		},
	}
}

func TestSubmitReport_Success(t *testing.T) {
	svc, reports, _, alerts, _ := setupService()

	reports.On("CreateReport", mock.Anything, mock.Anything).Return(nil)
	alerts.On("Raise", mock.Anything, models.AlertNewDisaster, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.Alert{}, nil)

	report, err := svc.SubmitReport(context.Background(), validReportInput())

	require.NoError(t, err)
	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, models.ReportPending, report.Status)
	require.NotNil(t, report.Requirements.Food)
	assert.Equal(t, float64(0), report.Requirements.Food.Fulfilled)
	assert.Equal(t, float64(100), report.Requirements.Food.RemainingNeeded)
	require.NotNil(t, report.Requirements.Other)
	assert.Equal(t, "Rescue boats", report.Requirements.Other.Details)
	assert.Nil(t, report.Requirements.Water)
	reports.AssertExpectations(t)
	alerts.AssertExpectations(t)
}

func TestSubmitReport_ValidationErrors(t *testing.T) {
	svc, _, _, _, _ := setupService()

	in := validReportInput()
	in.Name = ""
	_, err := svc.SubmitReport(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrValidation)

	in = validReportInput()
	in.Status = "bogus"
	_, err = svc.SubmitReport(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSubmitReport_AlertFailureDoesNotFailSubmit(t *testing.T) {
	svc, reports, _, alerts, _ := setupService()

	reports.On("CreateReport", mock.Anything, mock.Anything).Return(nil)
	alerts.On("Raise", mock.Anything, models.AlertNewDisaster, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("stream down"))

	_, err := svc.SubmitReport(context.Background(), validReportInput())
	require.NoError(t, err)
}

func TestEditReport_PreservesFulfilled(t *testing.T) {
	svc, reports, _, _, _ := setupService()

	existing := &models.Report{
		ReportID: "report-1",
		Status:   models.ReportPending,
		Requirements: models.RequirementSet{
			Food: &models.Requirement{Needed: true, Quantity: 100, Fulfilled: 40, RemainingNeeded: 60},
		},
	}
	reports.On("GetReport", mock.Anything, "report-1").Return(existing, nil)
	reports.On("UpdateReport", mock.Anything, existing).Return(nil)

	in := validReportInput()
	in.Requirements = &ledger.RequirementsInput{
		Food: &ledger.CategoryInput{Needed: true, Quantity: 150},
	}

	report, err := svc.EditReport(context.Background(), "report-1", in)

	require.NoError(t, err)
	assert.Equal(t, float64(40), report.Requirements.Food.Fulfilled)
	assert.Equal(t, float64(110), report.Requirements.Food.RemainingNeeded)
	assert.Nil(t, report.Requirements.Other)
}

func TestEditReport_ResolvedAlertEdgeTriggered(t *testing.T) {
	svc, reports, _, alerts, _ := setupService()

	existing := &models.Report{ReportID: "report-1", Status: models.ReportPending}
	reports.On("GetReport", mock.Anything, "report-1").Return(existing, nil)
	reports.On("UpdateReport", mock.Anything, existing).Return(nil)
	alerts.On("Raise", mock.Anything, models.AlertUpdate, mock.Anything, mock.Anything, "report-1").
		Return(&models.Alert{}, nil).Once()

	in := validReportInput()
	in.Status = string(models.ReportResolved)

	_, err := svc.EditReport(context.Background(), "report-1", in)
	require.NoError(t, err)
	alerts.AssertExpectations(t)

	// 已 resolved 的报告重复保存不再触发
	_, err = svc.EditReport(context.Background(), "report-1", in)
	require.NoError(t, err)
	alerts.AssertNumberOfCalls(t, "Raise", 1)
}

func TestEditReport_NotFound(t *testing.T) {
	svc, reports, _, _, _ := setupService()

	reports.On("GetReport", mock.Anything, "missing").Return(nil, models.ErrNotFound)

	_, err := svc.EditReport(context.Background(), "missing", validReportInput())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFilterReports(t *testing.T) {
	svc, reports, _, _, _ := setupService()

	needy := &models.Report{
		ReportID: "report-1",
		Requirements: models.RequirementSet{
			Food: &models.Requirement{Needed: true, Quantity: 100, RemainingNeeded: 60},
		},
	}
	fulfilled := &models.Report{
		ReportID: "report-2",
		Requirements: models.RequirementSet{
			Food: &models.Requirement{Needed: true, Quantity: 100, Fulfilled: 100},
		},
	}
	reports.On("ListReports", mock.Anything).Return([]*models.Report{needy, fulfilled}, nil)

	all, err := svc.FilterReports(context.Background(), FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	needs, err := svc.FilterReports(context.Background(), FilterNeeds)
	require.NoError(t, err)
	require.Len(t, needs, 1)
	assert.Equal(t, "report-1", needs[0].ReportID)

	done, err := svc.FilterReports(context.Background(), FilterFulfilled)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "report-2", done[0].ReportID)

	_, err = svc.FilterReports(context.Background(), "bogus")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPledgeDonation_Delegates(t *testing.T) {
	svc, _, _, _, donations := setupService()

	expected := &models.DonationRecord{DonationID: "donation-1"}
	donations.On("Pledge", mock.Anything, &reconciler.PledgeInput{
		ReportID: "report-1",
		DonorID:  "donor-1",
		Category: models.CategoryFood,
		Quantity: 25,
	}).Return(expected, nil)

	record, err := svc.PledgeDonation(context.Background(), "report-1", "donor-1", models.CategoryFood, 25)
	require.NoError(t, err)
	assert.Equal(t, expected, record)
}

func TestAdvanceDonationStatus_MapsLegacyVocabulary(t *testing.T) {
	svc, _, _, _, donations := setupService()

	donations.On("AdvanceStatus", mock.Anything, "report-1", 0, models.DonationConfirmed).Return(nil)

	err := svc.AdvanceDonationStatus(context.Background(), "report-1", 0, "verified")
	require.NoError(t, err)
	donations.AssertExpectations(t)

	err = svc.AdvanceDonationStatus(context.Background(), "report-1", 0, "bogus")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDeleteReport(t *testing.T) {
	svc, reports, _, _, _ := setupService()

	reports.On("DeleteReport", mock.Anything, "report-1").Return(nil)

	require.NoError(t, svc.DeleteReport(context.Background(), "report-1"))
	assert.ErrorIs(t, svc.DeleteReport(context.Background(), ""), models.ErrValidation)
}
