package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-giftgate/giftgate/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store wraps the durable tables: connections, reward choices, and the
// append-only settlement log. All mutations are committed before the call
// returns; the database's own uniqueness constraints are the concurrency
// control, not application-level locks.
type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Dialect errors are normalized so duplicate-key violations become
		// gorm.ErrDuplicatedKey on both sqlite and postgres.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Connection{},
		&models.RewardChoice{},
		&models.SettlementLog{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Connection operations

// UpsertConnection inserts the connection or, if the user already has one,
// replaces its grant handle and display fields.
func (s *Store) UpsertConnection(conn *models.Connection) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"grant_handle", "display_name", "handle", "updated_at",
		}),
	}).Create(conn).Error
}

func (s *Store) GetConnection(userID int64) (*models.Connection, error) {
	var conn models.Connection
	if err := s.db.First(&conn, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// ListConnections returns all connections in a stable order for presentation.
func (s *Store) ListConnections() ([]models.Connection, error) {
	var conns []models.Connection
	err := s.db.Order("created_at, user_id").Find(&conns).Error
	return conns, err
}

func (s *Store) CountConnections() (int64, error) {
	var count int64
	err := s.db.Model(&models.Connection{}).Count(&count).Error
	return count, err
}

// RemoveConnection deletes the connection for the user. Removing an absent
// entry is a no-op, not an error.
func (s *Store) RemoveConnection(userID int64) error {
	return s.db.Delete(&models.Connection{}, "user_id = ?", userID).Error
}

// Reward choice operations

// TryRecordChoice records the user's one-time reward selection as a single
// atomic insert. When the primary key rejects a second row for the same
// user, the stored choice is returned together with ErrChoiceExists so the
// caller can tell the user what was already chosen.
func (s *Store) TryRecordChoice(userID int64, kind models.RewardKind) (*models.RewardChoice, error) {
	choice := &models.RewardChoice{
		UserID:    userID,
		Kind:      kind,
		DecidedAt: time.Now(),
	}

	err := s.db.Create(choice).Error
	if err == nil {
		return choice, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, lookupErr := s.LookupChoice(userID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return existing, ErrChoiceExists
	}
	return nil, err
}

func (s *Store) LookupChoice(userID int64) (*models.RewardChoice, error) {
	var choice models.RewardChoice
	if err := s.db.First(&choice, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &choice, nil
}

// Settlement log operations

// AppendSettlementLog writes one audit entry. Entries are immutable.
func (s *Store) AppendSettlementLog(entry *models.SettlementLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	return s.db.Create(entry).Error
}

// ListSettlementLogs returns the most recent entries for a user,
// newest first. A limit of 0 means no limit.
func (s *Store) ListSettlementLogs(userID int64, limit int) ([]models.SettlementLog, error) {
	var entries []models.SettlementLog
	q := s.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
