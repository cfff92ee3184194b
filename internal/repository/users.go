package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"relief-coordinator/internal/models"

	"go.uber.org/zap"
)

// UsersRepository 用户仓库
type UsersRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUsersRepository 创建用户仓库
func NewUsersRepository(db *sql.DB, logger *zap.Logger) *UsersRepository {
	return &UsersRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `
		user_id,
		username,
		email,
		name,
		phone,
		user_type,
		donations_made,
		registered_on`

// CreateUser 创建用户
func (r *UsersRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	if user.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	donations := user.DonationsMade
	if donations == nil {
		donations = []models.DonationMade{}
	}
	donationsJSON, err := json.Marshal(donations)
	if err != nil {
		return fmt.Errorf("failed to marshal donations_made: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		user.UserID,
		user.Username,
		user.Email,
		user.Name,
		user.Phone,
		user.UserType,
		donationsJSON,
		user.RegisteredOn,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser 根据 user_id 获取用户
func (r *UsersRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE user_id = $1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ListUsers 列出全部用户（告警扇出用）
func (r *UsersRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY registered_on ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// AppendDonationMade 向捐赠者历史追加镜像记录
// 使用 JSONB || 追加，避免读-改-写的并发丢失
func (r *UsersRepository) AppendDonationMade(ctx context.Context, userID string, record models.DonationMade) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	recordJSON, err := json.Marshal([]models.DonationMade{record})
	if err != nil {
		return fmt.Errorf("failed to marshal donation record: %w", err)
	}

	query := `
		UPDATE users
		SET donations_made = donations_made || $2::jsonb
		WHERE user_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, recordJSON)
	if err != nil {
		return fmt.Errorf("failed to append donation record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
	}

	return nil
}

// UpdateDonationStatus 按稳定认捐标识同步镜像记录的状态
// 单条 UPDATE 就地改写匹配元素：同一捐赠者在不同报告上的并发状态同步
// 走读-改-写会互相覆盖
func (r *UsersRepository) UpdateDonationStatus(ctx context.Context, userID, donationID string, status models.DonationStatus) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if donationID == "" {
		return fmt.Errorf("donation_id is required")
	}

	query := `
		UPDATE users
		SET donations_made = (
			SELECT jsonb_agg(
				CASE WHEN elem->>'donation_id' = $2
					THEN jsonb_set(elem, '{status}', to_jsonb($3::text))
					ELSE elem
				END)
			FROM jsonb_array_elements(donations_made) AS elem
		)
		WHERE user_id = $1
		  AND donations_made @> jsonb_build_array(jsonb_build_object('donation_id', $2::text))
	`

	result, err := r.db.ExecContext(ctx, query, userID, donationID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update donation status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: donation %s for user %s", models.ErrNotFound, donationID, userID)
	}

	return nil
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	var donationsJSON []byte

	err := row.Scan(
		&user.UserID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.UserType,
		&donationsJSON,
		&user.RegisteredOn,
	)
	if err != nil {
		return nil, err
	}

	user.DonationsMade = []models.DonationMade{}
	if len(donationsJSON) > 0 {
		if err := json.Unmarshal(donationsJSON, &user.DonationsMade); err != nil {
			return nil, fmt.Errorf("failed to unmarshal donations_made: %w", err)
		}
	}

	return &user, nil
}
