package session

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/assetdesk/assetdesk/internal/db/models"
)

const defaultGCInterval = 10 * time.Minute

// GormStorage implements fiber.Storage on the auth_sessions table.
// It backs sessions on engines without a dedicated gofiber storage driver.
type GormStorage struct {
	db   *gorm.DB
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

var _ fiber.Storage = (*GormStorage)(nil)

// NewGormStorage returns a storage on db and sweeps expired rows every gcInterval until Close.
// Zero selects a ten minute interval, a negative interval disables the sweep.
func NewGormStorage(db *gorm.DB, gcInterval time.Duration) *GormStorage {
	s := &GormStorage{db: db, now: time.Now, done: make(chan struct{})}

	if gcInterval == 0 {
		gcInterval = defaultGCInterval
	}

	if gcInterval > 0 {
		go s.gcTicker(gcInterval)
	}

	return s
}

// Get returns the value of key, nil if it does not exist or expired.
func (s *GormStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var row models.Session

	err := s.db.Where(&models.Session{Key: key}).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}

	if row.ExpiresAt != 0 && row.ExpiresAt <= s.now().Unix() {
		return nil, nil
	}

	return row.Data, nil
}

// Set stores val under key. exp of zero means no expiry.
func (s *GormStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	row := models.Session{Key: key, Data: val}
	if exp > 0 {
		row.ExpiresAt = s.now().Add(exp).Unix()
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at"}),
	}).Create(&row).Error

	return errors.Wrap(err, "failed to set session")
}

// Delete removes key.
func (s *GormStorage) Delete(key string) error {
	if key == "" {
		return nil
	}

	return errors.Wrap(s.db.Delete(&models.Session{Key: key}).Error, "failed to delete session")
}

// Reset removes every session.
func (s *GormStorage) Reset() error {
	return errors.Wrap(
		s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Session{}).Error,
		"failed to reset sessions",
	)
}

// Close stops the background sweep.
func (s *GormStorage) Close() error {
	s.once.Do(func() { close(s.done) })

	return nil
}

// GC deletes expired rows.
func (s *GormStorage) GC(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <> 0 AND expires_at <= ?", s.now().Unix()).
		Delete(&models.Session{})

	return res.RowsAffected, errors.Wrap(res.Error, "failed to sweep sessions")
}

func (s *GormStorage) gcTicker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n, err := s.GC(context.Background()); err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
			} else if n > 0 {
				log.Debug().Int64("removed", n).Msg("expired sessions removed")
			}
		}
	}
}
