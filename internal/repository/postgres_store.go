package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"autopark-notifier/internal/models"

	"go.uber.org/zap"
)

// PostgresStore 基于 PostgreSQL 的存储实现
//
//	devices(device_id TEXT PRIMARY KEY, name TEXT NULL)
//	device_slots(device_id TEXT, slot_key TEXT, user_id TEXT NULL, check_in_time JSONB NULL)
//	users(user_id TEXT PRIMARY KEY, fcm_token TEXT NULL)
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore 创建 PostgreSQL 存储
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// GetSlots 读取设备全部车位
func (s *PostgresStore) GetSlots(ctx context.Context, deviceID string) ([]models.Slot, error) {
	query := `
		SELECT slot_key, user_id, check_in_time
		FROM device_slots
		WHERE device_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots for device %s: %w", deviceID, err)
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		var (
			slotKey     string
			userID      sql.NullString
			checkInTime []byte
		)
		if err := rows.Scan(&slotKey, &userID, &checkInTime); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}

		slot := models.Slot{Key: slotKey, UserID: userID.String}
		if len(checkInTime) > 0 {
			if err := slot.CheckInTime.UnmarshalJSON(checkInTime); err != nil {
				return nil, fmt.Errorf("failed to decode check_in_time of slot %s: %w", slotKey, err)
			}
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slots: %w", err)
	}

	models.SortSlots(slots)
	return slots, nil
}

// GetUser 读取用户记录
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT fcm_token FROM users WHERE user_id = $1`

	var token sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user %s: %w", userID, err)
	}

	return &models.User{UserID: userID, FCMToken: token.String}, nil
}

// GetDeviceName 读取设备显示名
func (s *PostgresStore) GetDeviceName(ctx context.Context, deviceID string) (string, error) {
	query := `SELECT name FROM devices WHERE device_id = $1`

	var name sql.NullString
	err := s.db.QueryRowContext(ctx, query, deviceID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to query device name %s: %w", deviceID, err)
	}
	if !name.Valid || name.String == "" {
		return "", fmt.Errorf("device name %s: %w", deviceID, ErrNotFound)
	}
	return name.String, nil
}
