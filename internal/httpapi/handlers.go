// Package httpapi 对外 JSON API
// 认证由外部网关处理；处理器信任 X-User-Id 请求头标识当前用户
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"relief-coordinator/internal/models"
	"relief-coordinator/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const userIDHeader = "X-User-Id"

// ReliefService 处理器依赖的服务操作
type ReliefService interface {
	SubmitReport(ctx context.Context, in *service.ReportInput) (*models.Report, error)
	EditReport(ctx context.Context, reportID string, in *service.ReportInput) (*models.Report, error)
	DeleteReport(ctx context.Context, reportID string) error
	GetReport(ctx context.Context, reportID string) (*models.Report, error)
	FilterReports(ctx context.Context, filter string) ([]*models.Report, error)
	PledgeDonation(ctx context.Context, reportID, donorID string, category models.Category, quantity float64) (*models.DonationRecord, error)
	AdvanceDonationStatus(ctx context.Context, reportID string, index int, status string) error
	ListAlertsFor(ctx context.Context, userID string) ([]*models.Alert, error)
	MarkAlertSeen(ctx context.Context, alertID, userID string) error
	AlertSeenBy(ctx context.Context, alertID string) ([]models.SeenEntry, error)
	RegisterUser(ctx context.Context, in *service.UserInput) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Handler HTTP 处理器
type Handler struct {
	svc    ReliefService
	logger *zap.Logger
}

// NewRouter 构建路由
func NewRouter(svc ReliefService, logger *zap.Logger) *mux.Router {
	h := &Handler{svc: svc, logger: logger}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/reports", h.SubmitReport).Methods(http.MethodPost)
	api.HandleFunc("/reports", h.ListReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", h.GetReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", h.EditReport).Methods(http.MethodPut)
	api.HandleFunc("/reports/{id}", h.DeleteReport).Methods(http.MethodDelete)
	api.HandleFunc("/reports/{id}/donations", h.PledgeDonation).Methods(http.MethodPost)
	api.HandleFunc("/reports/{id}/donations/{index}/status", h.AdvanceDonationStatus).Methods(http.MethodPut)
	api.HandleFunc("/alerts", h.ListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/seen", h.MarkAlertSeen).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/seen", h.AlertSeenBy).Methods(http.MethodGet)
	api.HandleFunc("/users", h.RegisterUser).Methods(http.MethodPost)
	api.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)

	return r
}

// SubmitReport POST /api/v1/reports
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var in service.ReportInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if in.ReportedBy == "" {
		in.ReportedBy = r.Header.Get(userIDHeader)
	}

	report, err := h.svc.SubmitReport(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("Report submitted",
		zap.String("report_id", report.ReportID),
		zap.String("disaster_type", report.DisasterType),
	)
	writeJSON(w, http.StatusCreated, Ok(report))
}

// ListReports GET /api/v1/reports?filter=all|needs|fulfilled
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.FilterReports(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reports))
}

// GetReport GET /api/v1/reports/{id}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// EditReport PUT /api/v1/reports/{id}
func (h *Handler) EditReport(w http.ResponseWriter, r *http.Request) {
	var in service.ReportInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	report, err := h.svc.EditReport(r.Context(), mux.Vars(r)["id"], &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// DeleteReport DELETE /api/v1/reports/{id}
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["id"]
	if err := h.svc.DeleteReport(r.Context(), reportID); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("Report deleted", zap.String("report_id", reportID))
	writeJSON(w, http.StatusOK, Ok(map[string]string{"report_id": reportID}))
}

// pledgeRequest 认捐请求体
type pledgeRequest struct {
	DonorID  string  `json:"donor_id"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
}

// PledgeDonation POST /api/v1/reports/{id}/donations
func (h *Handler) PledgeDonation(w http.ResponseWriter, r *http.Request) {
	var req pledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.DonorID == "" {
		req.DonorID = r.Header.Get(userIDHeader)
	}

	record, err := h.svc.PledgeDonation(r.Context(), mux.Vars(r)["id"], req.DonorID,
		models.Category(req.Category), req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("Donation pledged",
		zap.String("report_id", mux.Vars(r)["id"]),
		zap.String("donation_id", record.DonationID),
		zap.String("category", string(record.Category)),
	)
	writeJSON(w, http.StatusCreated, Ok(record))
}

// statusRequest 捐赠状态更新请求体
type statusRequest struct {
	Status string `json:"status"`
}

// AdvanceDonationStatus PUT /api/v1/reports/{id}/donations/{index}/status
func (h *Handler) AdvanceDonationStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid donation index"))
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if err := h.svc.AdvanceDonationStatus(r.Context(), vars["id"], index, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"status": req.Status}))
}

// alertView 列表项：告警加上请求者视角的已读标记
type alertView struct {
	*models.Alert
	Seen bool `json:"seen"`
}

// ListAlerts GET /api/v1/alerts?user_id=
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = r.Header.Get(userIDHeader)
	}

	alerts, err := h.svc.ListAlertsFor(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]alertView, 0, len(alerts))
	for _, alert := range alerts {
		views = append(views, alertView{Alert: alert, Seen: alert.SeenByUser(userID)})
	}
	writeJSON(w, http.StatusOK, Ok(views))
}

// seenRequest 已读标记请求体
type seenRequest struct {
	UserID string `json:"user_id"`
}

// MarkAlertSeen POST /api/v1/alerts/{id}/seen
func (h *Handler) MarkAlertSeen(w http.ResponseWriter, r *http.Request) {
	var req seenRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
			return
		}
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get(userIDHeader)
	}

	if err := h.svc.MarkAlertSeen(r.Context(), mux.Vars(r)["id"], req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(fmt.Sprintf("alert %s marked seen", mux.Vars(r)["id"])))
}

// AlertSeenBy GET /api/v1/alerts/{id}/seen
func (h *Handler) AlertSeenBy(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.AlertSeenBy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}

// RegisterUser POST /api/v1/users
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in service.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("User registered",
		zap.String("user_id", user.UserID),
		zap.String("user_type", string(user.UserType)),
	)
	writeJSON(w, http.StatusCreated, Ok(user))
}

// ListUsers GET /api/v1/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(users))
}
