package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
)

// DatabaseStore implements Store on PostgreSQL through gorm.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an open gorm connection.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// AutoMigrate creates or updates the tables this store uses.
func (d *DatabaseStore) AutoMigrate() error {
	return d.db.AutoMigrate(
		&models.ConversationSession{},
		&models.OTPRecord{},
		&models.Beneficiary{},
		&models.Transfer{},
	)
}

func (d *DatabaseStore) LoadConversation(ctx context.Context, userID string) (*models.ConversationState, error) {
	var row models.ConversationSession
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", userID, err)
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(row.Context), &state); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", userID, err)
	}
	state.UserID = userID
	state.Normalize()
	return &state, nil
}

func (d *DatabaseStore) SaveConversation(ctx context.Context, state *models.ConversationState) error {
	if state == nil || state.UserID == "" {
		return fmt.Errorf("conversation state requires a user id")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", state.UserID, err)
	}

	row := models.ConversationSession{
		UserID:    state.UserID,
		Phase:     string(state.Phase),
		LastInput: state.LastInput,
		Context:   string(raw),
		LastSeen:  time.Now(),
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phase", "last_input", "context", "last_seen", "updated_at", "deleted_at"}),
	}).Create(&row).Error
}

func (d *DatabaseStore) DeleteConversation(ctx context.Context, userID string) error {
	return d.db.WithContext(ctx).Unscoped().
		Where("user_id = ?", userID).
		Delete(&models.ConversationSession{}).Error
}

func (d *DatabaseStore) SaveOTP(ctx context.Context, record *models.OTPRecord) error {
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error
}

func (d *DatabaseStore) GetOTP(ctx context.Context, userID string) (*models.OTPRecord, error) {
	var record models.OTPRecord
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get otp %s: %w", userID, err)
	}
	return &record, nil
}

func (d *DatabaseStore) DeleteOTP(ctx context.Context, userID string) error {
	return d.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.OTPRecord{}).Error
}

func (d *DatabaseStore) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.OTPRecord{})
	return result.RowsAffected, result.Error
}

func (d *DatabaseStore) SeedBeneficiaries(ctx context.Context, beneficiaries []models.Beneficiary) error {
	if len(beneficiaries) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&beneficiaries).Error
}

func (d *DatabaseStore) ListBeneficiaries(ctx context.Context) ([]models.Beneficiary, error) {
	var beneficiaries []models.Beneficiary
	if err := d.db.WithContext(ctx).Order("id").Find(&beneficiaries).Error; err != nil {
		return nil, fmt.Errorf("list beneficiaries: %w", err)
	}
	return beneficiaries, nil
}

func (d *DatabaseStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	return d.db.WithContext(ctx).Create(transfer).Error
}

func (d *DatabaseStore) GetTransfersByUser(ctx context.Context, userID string) ([]*models.Transfer, error) {
	var transfers []*models.Transfer
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&transfers).Error
	if err != nil {
		return nil, fmt.Errorf("list transfers for %s: %w", userID, err)
	}
	return transfers, nil
}

func (d *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
