package repository

import (
	"context"

	"github.com/quizfaber/quizserver/internal/model"
	"gorm.io/gorm"
)

// LogTx inserts audit rows over one borrowed connection.
type LogTx interface {
	InsertLog(entry *model.WebLog) error
}

type LogStore interface {
	Connection(ctx context.Context, fn func(tx LogTx) error) error
}

type WebLogRepository interface {
	LogStore
	FindRecent(limit int) ([]model.WebLog, error)
}

type webLogRepository struct {
	db *gorm.DB
}

func NewWebLogRepository(db *gorm.DB) WebLogRepository {
	return &webLogRepository{db: db}
}

func (r *webLogRepository) Connection(ctx context.Context, fn func(tx LogTx) error) error {
	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return fn(&logTx{db: conn})
	})
}

func (r *webLogRepository) FindRecent(limit int) ([]model.WebLog, error) {
	var entries []model.WebLog
	err := r.db.Order("date_created DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

type logTx struct {
	db *gorm.DB
}

func (t *logTx) InsertLog(entry *model.WebLog) error {
	return t.db.Create(entry).Error
}
