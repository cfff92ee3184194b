package service

import (
	"context"
	"fmt"
	"time"

	"relief-coordinator/internal/models"

	"github.com/google/uuid"
)

// UserInput 用户注册表单
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	UserType string `json:"user_type,omitempty"`
}

// RegisterUser 注册用户（默认 donor）
func (s *ReliefService) RegisterUser(ctx context.Context, in *UserInput) (*models.User, error) {
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrValidation)
	}
	if in.Email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	userType := models.UserDonor
	if in.UserType != "" {
		switch models.UserType(in.UserType) {
		case models.UserDonor, models.UserAdmin:
			userType = models.UserType(in.UserType)
		default:
			return nil, fmt.Errorf("%w: invalid user type %q", models.ErrValidation, in.UserType)
		}
	}

	user := &models.User{
		UserID:        uuid.New().String(),
		Username:      in.Username,
		Email:         in.Email,
		Name:          in.Name,
		Phone:         in.Phone,
		UserType:      userType,
		DonationsMade: []models.DonationMade{},
		RegisteredOn:  time.Now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetUser 查询单个用户
func (s *ReliefService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	return s.users.GetUser(ctx, userID)
}

// ListUsers 列出全部用户（注册时间升序）
func (s *ReliefService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.ListUsers(ctx)
}

// ListAlertsFor 列出用户可见的告警
func (s *ReliefService) ListAlertsFor(ctx context.Context, userID string) ([]*models.Alert, error) {
	return s.alerts.ListAlertsFor(ctx, userID)
}

// MarkAlertSeen 标记告警已读
func (s *ReliefService) MarkAlertSeen(ctx context.Context, alertID, userID string) error {
	return s.alerts.MarkSeen(ctx, alertID, userID)
}

// AlertSeenBy 查询一条告警已被哪些用户读过
func (s *ReliefService) AlertSeenBy(ctx context.Context, alertID string) ([]models.SeenEntry, error) {
	return s.alerts.SeenBy(ctx, alertID)
}
