package repository

import (
	"context"
	"time"

	"github.com/quizfaber/quizserver/internal/model"
	"gorm.io/gorm"
)

// SessionTx is the slice of session access the write-back dispatcher needs,
// scoped to one borrowed database connection. FindPerson lets the dispatcher
// verify the owner of each drained update still exists and is enabled.
type SessionTx interface {
	FindPerson(identity string) (*model.Person, error)
	GetSessionData(sessionID uint) (*string, error)
	SetSessionData(sessionID uint, data string, at time.Time) error
}

// SessionStore hands a SessionTx bound to a single connection to fn, so a
// whole batch of queued updates reuses one connection instead of grabbing one
// from the pool per update.
type SessionStore interface {
	Connection(ctx context.Context, fn func(tx SessionTx) error) error
}

type SessionRepository interface {
	SessionStore
	Create(session *model.QuizSession) error
	FindByID(sessionID uint) (*model.QuizSession, error)
	// FindRecoverable returns the open sessions of a person created after the
	// cutoff, newest first, excluding the person's current session.
	FindRecoverable(personID, excludeSessionID uint, since time.Time) ([]model.QuizSession, error)
	SetData(sessionID uint, data *string, at time.Time) error
	Close(sessionID uint, ipLogout string) error
	LinkQuiz(sessionID, quizID uint) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *model.QuizSession) error {
	return r.db.Create(session).Error
}

func (r *sessionRepository) FindByID(sessionID uint) (*model.QuizSession, error) {
	var session model.QuizSession
	err := r.db.First(&session, sessionID).Error
	return &session, err
}

func (r *sessionRepository) FindRecoverable(personID, excludeSessionID uint, since time.Time) ([]model.QuizSession, error) {
	var sessions []model.QuizSession
	err := r.db.
		Where("person_id = ?", personID).
		Where("ip_logout IS NULL").
		Where("quiz_id IS NULL").
		Where("session_id <> ?", excludeSessionID).
		Where("date_created >= ?", since).
		Order("date_created DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) SetData(sessionID uint, data *string, at time.Time) error {
	return r.db.Model(&model.QuizSession{}).Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"session_data":     data,
			"date_last_update": at,
		}).Error
}

func (r *sessionRepository) Close(sessionID uint, ipLogout string) error {
	return r.db.Model(&model.QuizSession{}).Where("session_id = ?", sessionID).
		Update("ip_logout", ipLogout).Error
}

func (r *sessionRepository) LinkQuiz(sessionID, quizID uint) error {
	return r.db.Model(&model.QuizSession{}).Where("session_id = ?", sessionID).
		Update("quiz_id", quizID).Error
}

func (r *sessionRepository) Connection(ctx context.Context, fn func(tx SessionTx) error) error {
	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return fn(&sessionTx{db: conn})
	})
}

type sessionTx struct {
	db *gorm.DB
}

func (t *sessionTx) FindPerson(identity string) (*model.Person, error) {
	var person model.Person
	err := t.db.Where("user_identity = ?", identity).First(&person).Error
	return &person, err
}

func (t *sessionTx) GetSessionData(sessionID uint) (*string, error) {
	var session model.QuizSession
	if err := t.db.Select("session_data").First(&session, sessionID).Error; err != nil {
		return nil, err
	}
	return session.SessionData, nil
}

func (t *sessionTx) SetSessionData(sessionID uint, data string, at time.Time) error {
	return t.db.Model(&model.QuizSession{}).Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"session_data":     data,
			"date_last_update": at,
		}).Error
}
