package repository

import (
	"context"
	"time"

	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/sqlutil"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResultTx is the write surface of one submission transaction. Header,
// questions, answers and the report either all land or none do.
type ResultTx interface {
	CreateHeader(result *model.QuizResult) error
	CreateQuestion(question *model.QuizResultQuestion) error
	CreateAnswers(answers []model.QuizResultAnswer) error
	SaveReport(report *model.QuizResultReport) error
}

// ResultRow is one search hit: the stored result joined with the quiz
// metadata needed for its header.
type ResultRow struct {
	model.QuizResult
	Author   string
	Argument string
}

// ResultFilter narrows the results search. Zero values mean "no constraint".
type ResultFilter struct {
	Title             string
	User              string
	FromDate          *time.Time
	ToDate            *time.Time
	FromMark          *float64
	ToMark            *float64
	LastMinutes       int
	IncludeDuplicates bool
	OrderBy           string // sanitized column expression, set by the caller
	Limit             int
}

type ResultRepository interface {
	Transaction(ctx context.Context, fn func(tx ResultTx) error) error
	// FindPrior returns the most recent non-duplicated result of a user on a
	// quiz, or gorm.ErrRecordNotFound.
	FindPrior(quizName, userLogin string) (*model.QuizResult, error)
	// CountPrior counts every stored result of the user on the quiz, duplicated
	// rows included. A nonzero quizID additionally pins the count to that quiz.
	CountPrior(quizName, userLogin string, quizID uint) (int64, error)
	FindByID(id uint) (*model.QuizResult, error)
	Search(filter ResultFilter) ([]ResultRow, error)
	FindQuestions(resultID uint) ([]model.QuizResultQuestion, error)
	FindAnswers(resultID uint) ([]model.QuizResultAnswer, error)
	UpdateQuestion(id uint, fields map[string]interface{}) error
	UpdateResult(id uint, fields map[string]interface{}) error
	DeleteByIDs(ids []uint) error
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Transaction(ctx context.Context, fn func(tx ResultTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&resultTx{db: tx})
	})
}

func (r *resultRepository) FindPrior(quizName, userLogin string) (*model.QuizResult, error) {
	var result model.QuizResult
	err := r.db.
		Where("quiz_name = ? AND user_login = ?", quizName, userLogin).
		Where("is_duplicated = ?", false).
		Order("num_of_retake DESC, date_received DESC").
		First(&result).Error
	return &result, err
}

func (r *resultRepository) CountPrior(quizName, userLogin string, quizID uint) (int64, error) {
	query := r.db.Model(&model.QuizResult{}).
		Where("quiz_name = ? AND user_login = ?", quizName, userLogin)
	if quizID > 0 {
		query = query.Where("quiz_id = ?", quizID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *resultRepository) FindByID(id uint) (*model.QuizResult, error) {
	var result model.QuizResult
	err := r.db.First(&result, id).Error
	return &result, err
}

func (r *resultRepository) Search(filter ResultFilter) ([]ResultRow, error) {
	query := r.db.Model(&model.QuizResult{}).
		Select("quiz_results.*, quizzes.author AS author, quizzes.argument AS argument").
		Joins("LEFT JOIN quizzes ON quizzes.quiz_name = quiz_results.quiz_name")

	if filter.Title != "" {
		pattern := "%" + sqlutil.EscapeLike(filter.Title) + "%"
		query = query.Where("quiz_results.quiz_name LIKE ? OR quiz_results.quiz_title LIKE ?", pattern, pattern)
	}
	if filter.User != "" {
		pattern := "%" + sqlutil.EscapeLike(filter.User) + "%"
		query = query.Where("quiz_results.user_name LIKE ? OR quiz_results.user_login LIKE ?", pattern, pattern)
	}
	if filter.FromDate != nil {
		query = query.Where("quiz_results.date_completed >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("quiz_results.date_completed <= ?", *filter.ToDate)
	}
	if filter.FromMark != nil {
		query = query.Where("quiz_results.final_mark >= ?", *filter.FromMark)
	}
	if filter.ToMark != nil {
		query = query.Where("quiz_results.final_mark <= ?", *filter.ToMark)
	}
	if filter.LastMinutes > 0 {
		cutoff := time.Now().Add(-time.Duration(filter.LastMinutes) * time.Minute)
		query = query.Where("quiz_results.date_received >= ?", cutoff)
	}
	if !filter.IncludeDuplicates {
		query = query.Where("quiz_results.is_duplicated = ?", false)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "quiz_results.date_received DESC"
	}
	query = query.Order(orderBy)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []ResultRow
	err := query.Scan(&rows).Error
	return rows, err
}

func (r *resultRepository) FindQuestions(resultID uint) ([]model.QuizResultQuestion, error) {
	var questions []model.QuizResultQuestion
	err := r.db.Preload("Answers").
		Where("id_quiz_result = ?", resultID).
		Order("quest_num ASC").
		Find(&questions).Error
	return questions, err
}

func (r *resultRepository) FindAnswers(resultID uint) ([]model.QuizResultAnswer, error) {
	var answers []model.QuizResultAnswer
	err := r.db.Model(&model.QuizResultAnswer{}).
		Joins("JOIN quiz_result_questions ON quiz_result_questions.id = quiz_result_answers.id_result_question").
		Where("quiz_result_questions.id_quiz_result = ?", resultID).
		Order("quiz_result_questions.quest_num ASC, quiz_result_answers.answer_num ASC").
		Find(&answers).Error
	return answers, err
}

func (r *resultRepository) UpdateQuestion(id uint, fields map[string]interface{}) error {
	return r.db.Model(&model.QuizResultQuestion{}).Where("id = ?", id).Updates(fields).Error
}

func (r *resultRepository) UpdateResult(id uint, fields map[string]interface{}) error {
	return r.db.Model(&model.QuizResult{}).Where("id = ?", id).Updates(fields).Error
}

func (r *resultRepository) DeleteByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ?", ids).Delete(&model.QuizResultReport{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&model.QuizResult{}).Error
	})
}

type resultTx struct {
	db *gorm.DB
}

func (t *resultTx) CreateHeader(result *model.QuizResult) error {
	return t.db.Omit("Questions").Create(result).Error
}

func (t *resultTx) CreateQuestion(question *model.QuizResultQuestion) error {
	return t.db.Omit("Answers").Create(question).Error
}

func (t *resultTx) CreateAnswers(answers []model.QuizResultAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return t.db.Create(&answers).Error
}

func (t *resultTx) SaveReport(report *model.QuizResultReport) error {
	return t.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(report).Error
}
