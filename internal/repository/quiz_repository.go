package repository

import (
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/sqlutil"
	"gorm.io/gorm"
)

type QuizRepository interface {
	FindByName(name string) (*model.Quiz, error)
	// FindPublished lists published quizzes matching the optional title filter,
	// newest first, with paging. Also returns the unpaged match count.
	FindPublished(titleFilter string, limit, offset int) ([]model.Quiz, int64, error)
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) FindByName(name string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.Where("quiz_name = ?", name).First(&quiz).Error
	return &quiz, err
}

func (r *quizRepository) FindPublished(titleFilter string, limit, offset int) ([]model.Quiz, int64, error) {
	query := r.db.Model(&model.Quiz{}).Where("state = ?", model.QuizStatePublished)
	if titleFilter != "" {
		pattern := "%" + sqlutil.EscapeLike(titleFilter) + "%"
		query = query.Where("quiz_name LIKE ? OR title LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quizzes []model.Quiz
	err := query.Order("date_created DESC").Limit(limit).Offset(offset).Find(&quizzes).Error
	return quizzes, total, err
}
