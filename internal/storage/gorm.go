package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studiolens/whatsapp-relay/internal/models"
)

// DatabaseStore implements Store on top of gorm (postgres in production, sqlite locally)
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an open, migrated gorm connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) GetSession(ctx context.Context, phone string) (*models.Session, error) {
	var row models.WhatsAppSession
	err := s.db.WithContext(ctx).Where("phone_number = ?", phone).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return row.ToSession()
}

func (s *DatabaseStore) CreateSession(ctx context.Context, sess *models.Session) error {
	encoded, err := models.EncodeData(sess.Data)
	if err != nil {
		return err
	}
	row := models.WhatsAppSession{
		PhoneNumber: sess.Phone,
		CurrentStep: sess.CurrentStep,
		LastMessage: sess.LastMessage,
		Data:        encoded,
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *DatabaseStore) UpdateSession(ctx context.Context, phone, step, lastMessage string, patch models.DataPatch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var row models.WhatsAppSession
		var data models.SessionData
		err := tx.Where("phone_number = ?", phone).Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.WhatsAppSession{PhoneNumber: phone, CreatedAt: now}
		case err != nil:
			return fmt.Errorf("load session: %w", err)
		default:
			current, err := row.ToSession()
			if err != nil {
				return err
			}
			data = current.Data
		}

		encoded, err := models.EncodeData(data.Apply(patch))
		if err != nil {
			return err
		}
		row.CurrentStep = step
		row.LastMessage = lastMessage
		row.Data = encoded
		row.UpdatedAt = now

		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
}

func (s *DatabaseStore) DeleteSession(ctx context.Context, phone string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("phone = ?", phone).Delete(&models.MessageLog{}).Error; err != nil {
			return fmt.Errorf("delete message logs: %w", err)
		}
		res := tx.Where("phone_number = ?", phone).Delete(&models.WhatsAppSession{})
		if res.Error != nil {
			return fmt.Errorf("delete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *DatabaseStore) AppendMessageLog(ctx context.Context, entry *models.MessageLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append message log: %w", err)
	}
	return nil
}

func (s *DatabaseStore) ListMessageLogs(ctx context.Context, phone string, limit int) ([]models.MessageLog, error) {
	query := s.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []models.MessageLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list message logs: %w", err)
	}
	return logs, nil
}

func (s *DatabaseStore) RecordBillingNotification(ctx context.Context, n *models.BillingNotification) (bool, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(n)
	if res.Error != nil {
		return false, fmt.Errorf("record billing notification: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

var _ Store = (*DatabaseStore)(nil)
