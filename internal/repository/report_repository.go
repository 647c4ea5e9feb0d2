package repository

import (
	"github.com/quizfaber/quizserver/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepository interface {
	// Save inserts or replaces the report stored under the result's ID.
	Save(report *model.QuizResultReport) error
	FindByResultID(resultID uint) (*model.QuizResultReport, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Save(report *model.QuizResultReport) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(report).Error
}

func (r *reportRepository) FindByResultID(resultID uint) (*model.QuizResultReport, error) {
	var report model.QuizResultReport
	err := r.db.First(&report, resultID).Error
	return &report, err
}
