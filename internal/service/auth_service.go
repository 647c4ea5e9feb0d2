package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quizfaber/quizserver/config"
	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrParamCheckFailed   = errors.New("login page parameters do not match the account")
	ErrIdentityTaken      = errors.New("identity already registered")
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID    uint   `json:"uid"`
	Role      int    `json:"role"`
	Identity  string `json:"identity"`
	SessionID *uint  `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(req dto.RegistrationRequest) error
	// Login verifies the credentials, checks the account's page-parameter
	// constraints against the quiz page query string, opens a session when
	// sessions are enabled and returns a signed token.
	Login(req dto.LoginRequest, ip, userAgent string) (*dto.LoginResponse, error)
	Logout(claims *Claims, ip string) error
	ValidateToken(token string) (*Claims, error)
	// CheckLogin re-describes the authenticated user without issuing a token.
	CheckLogin(claims *Claims) (*dto.LoginResponse, error)
}

type authService struct {
	personRepo repository.PersonRepository
	sessions   SessionService
	auditLog   *LogDispatcher
	cfg        *config.Config
}

func NewAuthService(personRepo repository.PersonRepository, sessions SessionService, auditLog *LogDispatcher, cfg *config.Config) AuthService {
	return &authService{personRepo: personRepo, sessions: sessions, auditLog: auditLog, cfg: cfg}
}

func (s *authService) Register(req dto.RegistrationRequest) error {
	if _, err := s.personRepo.FindByIdentity(req.Email); err == nil {
		return ErrIdentityTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup identity: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	person := &model.Person{
		PersonName:   req.Name,
		UserIdentity: req.Email,
		UserPassword: string(hash),
		UserRole:     model.RoleStudent,
		IsEnabled:    true,
		Source:       "W",
	}
	if len(req.OtherFields) > 0 {
		info, err := json.Marshal(req.OtherFields)
		if err != nil {
			return fmt.Errorf("encode extra fields: %w", err)
		}
		person.Info = string(info)
	}
	if err := s.personRepo.Create(person); err != nil {
		return fmt.Errorf("create person: %w", err)
	}

	s.auditLog.Log(req.Email, model.LogLevelInfo, "user registered")
	return nil
}

func (s *authService) Login(req dto.LoginRequest, ip, userAgent string) (*dto.LoginResponse, error) {
	person, err := s.personRepo.FindByIdentity(req.Login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup person: %w", err)
	}
	if !person.IsEnabled {
		s.auditLog.Log(req.Login, model.LogLevelWarn, "login attempt on disabled account")
		return nil, ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(person.UserPassword), []byte(req.Pwd)); err != nil {
		s.auditLog.Log(req.Login, model.LogLevelWarn, "login attempt with wrong password")
		return nil, ErrInvalidCredentials
	}

	fields, err := decodePersonFields(person.Info)
	if err != nil {
		log.Warn().Err(err).Str("identity", person.UserIdentity).Msg("person info blob unreadable, param checks skipped")
	}
	if !matchPageParams(fields, req.Search) {
		s.auditLog.Log(req.Login, model.LogLevelWarn, "login rejected by page parameter check")
		return nil, ErrParamCheckFailed
	}

	var sessionID *uint
	if s.cfg.Server.UseSessions {
		session, err := s.sessions.Open(person.ID, ip, userAgent)
		if err != nil {
			return nil, err
		}
		sessionID = &session.SessionID
	}

	token, err := s.signToken(person, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.personRepo.UpdateLastAccess(person.ID, time.Now()); err != nil {
		log.Error().Err(err).Uint("personID", person.ID).Msg("last access update failed")
	}
	s.auditLog.Log(person.UserIdentity, model.LogLevelInfo, "user logged in")

	resp := &dto.LoginResponse{
		ID:        person.ID,
		Name:      person.PersonName,
		Email:     person.UserIdentity,
		Role:      person.UserRole,
		AuthToken: token,
		SessionID: sessionID,
	}
	for _, f := range fields {
		resp.OtherFields = append(resp.OtherFields, dto.PersonFieldItem(f))
	}
	return resp, nil
}

func (s *authService) Logout(claims *Claims, ip string) error {
	if claims.SessionID != nil {
		if err := s.sessions.Close(*claims.SessionID, ip); err != nil {
			return err
		}
	}
	s.auditLog.Log(claims.Identity, model.LogLevelInfo, "user logged out")
	return nil
}

func (s *authService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Auth.TokenSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

func (s *authService) CheckLogin(claims *Claims) (*dto.LoginResponse, error) {
	person, err := s.personRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup person %d: %w", claims.UserID, err)
	}
	if !person.IsEnabled {
		return nil, ErrUserDisabled
	}
	return &dto.LoginResponse{
		ID:        person.ID,
		Name:      person.PersonName,
		Email:     person.UserIdentity,
		Role:      person.UserRole,
		SessionID: claims.SessionID,
	}, nil
}

func (s *authService) signToken(person *model.Person, sessionID *uint) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    person.ID,
		Role:      person.UserRole,
		Identity:  person.UserIdentity,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Auth.TokenExpiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Auth.TokenSecret))
}

func decodePersonFields(info string) ([]model.PersonField, error) {
	if info == "" {
		return nil, nil
	}
	var fields []model.PersonField
	if err := json.Unmarshal([]byte(info), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// matchPageParams enforces the per-account page constraints: every stored
// field naming a URL parameter must find that parameter in the quiz page
// query string with exactly the stored value.
func matchPageParams(fields []model.PersonField, search string) bool {
	constrained := false
	for _, f := range fields {
		if f.Param != "" {
			constrained = true
			break
		}
	}
	if !constrained {
		return true
	}

	values, err := url.ParseQuery(strings.TrimPrefix(search, "?"))
	if err != nil {
		return false
	}
	for _, f := range fields {
		if f.Param == "" {
			continue
		}
		if values.Get(f.Param) != f.Value {
			return false
		}
	}
	return true
}
