package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/repository"
	"github.com/rs/zerolog/log"
)

// recoveryWindow bounds how far back an interrupted session may be resumed.
const recoveryWindow = 4 * time.Hour

type SessionService interface {
	Open(personID uint, ip, userAgent string) (*model.QuizSession, error)
	Close(sessionID uint, ip string) error
	// UpdateFirst synchronously overwrites (or clears) the whole session blob.
	// Used before the quiz starts, while no dispatcher traffic exists yet.
	UpdateFirst(req dto.SessionUpdateFirstRequest) error
	// LastRecoverable returns the newest resumable session of the person, or
	// nil when there is nothing to offer.
	LastRecoverable(personID, currentSessionID uint) (*dto.SessionRecoveryDTO, error)
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	auditLog    *LogDispatcher
}

func NewSessionService(sessionRepo repository.SessionRepository, auditLog *LogDispatcher) SessionService {
	return &sessionService{sessionRepo: sessionRepo, auditLog: auditLog}
}

func (s *sessionService) Open(personID uint, ip, userAgent string) (*model.QuizSession, error) {
	session := &model.QuizSession{
		PersonID:      personID,
		IpLogin:       ip,
		IsRecoverable: true,
		DateCreated:   time.Now(),
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	log.Info().Uint("sessionID", session.SessionID).Uint("personID", personID).Msg("session opened")
	return session, nil
}

func (s *sessionService) Close(sessionID uint, ip string) error {
	if err := s.sessionRepo.Close(sessionID, ip); err != nil {
		return fmt.Errorf("close session %d: %w", sessionID, err)
	}
	return nil
}

func (s *sessionService) UpdateFirst(req dto.SessionUpdateFirstRequest) error {
	var data *string
	if len(req.SessionData) > 0 {
		if !json.Valid(req.SessionData) {
			return fmt.Errorf("session %d: data is not valid JSON", req.SessionID)
		}
		blob := string(req.SessionData)
		data = &blob
	}
	if err := s.sessionRepo.SetData(req.SessionID, data, time.Now()); err != nil {
		return fmt.Errorf("overwrite session %d data: %w", req.SessionID, err)
	}
	return nil
}

func (s *sessionService) LastRecoverable(personID, currentSessionID uint) (*dto.SessionRecoveryDTO, error) {
	since := time.Now().Add(-recoveryWindow)
	sessions, err := s.sessionRepo.FindRecoverable(personID, currentSessionID, since)
	if err != nil {
		return nil, fmt.Errorf("lookup recoverable sessions: %w", err)
	}
	picked := pickRecoverable(sessions)
	if picked == nil {
		return nil, nil
	}
	return &dto.SessionRecoveryDTO{
		SessionID:      picked.SessionID,
		SessionData:    json.RawMessage(*picked.SessionData),
		DateCreated:    picked.DateCreated,
		DateLastUpdate: picked.DateLastUpdate,
	}, nil
}

// pickRecoverable takes the first candidate that still looks open and carries
// a non-empty blob. The rows arrive newest first; the blob check happens here
// rather than in SQL so an empty-string blob and a NULL blob behave the same.
func pickRecoverable(sessions []model.QuizSession) *model.QuizSession {
	for i := range sessions {
		s := &sessions[i]
		if s.Recoverable() && s.HasData() {
			return s
		}
	}
	return nil
}
