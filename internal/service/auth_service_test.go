package service

import (
	"errors"
	"testing"
	"time"

	"github.com/quizfaber/quizserver/config"
	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakePersonRepo struct {
	people     map[string]*model.Person
	lastAccess uint
}

func (f *fakePersonRepo) Create(person *model.Person) error {
	person.ID = uint(len(f.people) + 1)
	f.people[person.UserIdentity] = person
	return nil
}

func (f *fakePersonRepo) FindByID(id uint) (*model.Person, error) {
	for _, p := range f.people {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePersonRepo) FindByIdentity(identity string) (*model.Person, error) {
	person, ok := f.people[identity]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return person, nil
}

func (f *fakePersonRepo) UpdateLastAccess(id uint, _ time.Time) error {
	f.lastAccess = id
	return nil
}

func authConfig(useSessions bool) *config.Config {
	cfg := dispatcherConfig(7)
	cfg.Server.UseSessions = useSessions
	cfg.Auth.TokenSecret = "test-secret"
	cfg.Auth.TokenExpiresIn = time.Hour
	return cfg
}

func newAuthFixture(t *testing.T, useSessions bool) (AuthService, *fakePersonRepo, *fakeSessionRepo) {
	t.Helper()
	personRepo := &fakePersonRepo{people: map[string]*model.Person{}}
	sessionRepo := &fakeSessionRepo{}
	sessions := NewSessionService(sessionRepo, disabledAuditLog())
	svc := NewAuthService(personRepo, sessions, disabledAuditLog(), authConfig(useSessions))
	return svc, personRepo, sessionRepo
}

func seedPerson(t *testing.T, repo *fakePersonRepo, identity, password, info string, enabled bool) *model.Person {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	person := &model.Person{
		PersonName:   "Ada",
		UserIdentity: identity,
		UserPassword: string(hash),
		UserRole:     model.RoleStudent,
		Info:         info,
		IsEnabled:    enabled,
	}
	repo.Create(person)
	return person
}

func TestLoginTokenRoundTrip(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, true)
	seedPerson(t, repo, "ada@example.com", "secret", "", true)

	resp, err := svc.Login(dto.LoginRequest{Login: "ada@example.com", Pwd: "secret"}, "10.0.0.1", "agent/1.0")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AuthToken == "" {
		t.Fatal("no token issued")
	}
	if resp.SessionID == nil {
		t.Fatal("sessions enabled but no session opened")
	}
	if repo.lastAccess != resp.ID {
		t.Errorf("last access not updated for person %d", resp.ID)
	}

	claims, err := svc.ValidateToken(resp.AuthToken)
	if err != nil {
		t.Fatalf("token did not validate: %v", err)
	}
	if claims.UserID != resp.ID || claims.Identity != "ada@example.com" || claims.Role != model.RoleStudent {
		t.Errorf("claims = %+v", claims)
	}
	if claims.SessionID == nil || *claims.SessionID != *resp.SessionID {
		t.Errorf("session claim = %v, want %v", claims.SessionID, resp.SessionID)
	}
}

func TestLoginWithoutSessions(t *testing.T) {
	svc, repo, sessionRepo := newAuthFixture(t, false)
	seedPerson(t, repo, "ada@example.com", "secret", "", true)

	resp, err := svc.Login(dto.LoginRequest{Login: "ada@example.com", Pwd: "secret"}, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.SessionID != nil {
		t.Errorf("sessions disabled but session %d opened", *resp.SessionID)
	}
	if len(sessionRepo.created) != 0 {
		t.Errorf("%d sessions created", len(sessionRepo.created))
	}
}

func TestLoginRejections(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, false)
	seedPerson(t, repo, "ada@example.com", "secret", "", true)
	seedPerson(t, repo, "off@example.com", "secret", "", false)

	if _, err := svc.Login(dto.LoginRequest{Login: "ada@example.com", Pwd: "wrong"}, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := svc.Login(dto.LoginRequest{Login: "ghost@example.com", Pwd: "secret"}, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown identity: err = %v", err)
	}
	if _, err := svc.Login(dto.LoginRequest{Login: "off@example.com", Pwd: "secret"}, "", ""); !errors.Is(err, ErrUserDisabled) {
		t.Errorf("disabled account: err = %v", err)
	}
}

func TestLoginPageParamCheck(t *testing.T) {
	info := `[{"Name":"Class","Value":"3B","Param":"class"},{"Name":"Nickname","Value":"ada","Param":""}]`
	svc, repo, _ := newAuthFixture(t, false)
	seedPerson(t, repo, "ada@example.com", "secret", info, true)

	if _, err := svc.Login(dto.LoginRequest{Login: "ada@example.com", Pwd: "secret", Search: "?class=3B"}, "", ""); err != nil {
		t.Errorf("matching params rejected: %v", err)
	}
	if _, err := svc.Login(dto.LoginRequest{Login: "ada@example.com", Pwd: "secret", Search: "?class=4A"}, "", ""); !errors.Is(err, ErrParamCheckFailed) {
		t.Errorf("mismatched params: err = %v", err)
	}
	if _, err := svc.Login(dto.LoginRequest{Login: "ada@example.com", Pwd: "secret"}, "", ""); !errors.Is(err, ErrParamCheckFailed) {
		t.Errorf("missing params: err = %v", err)
	}
}

func TestMatchPageParams(t *testing.T) {
	constrained := []model.PersonField{{Name: "Class", Value: "3B", Param: "class"}}
	free := []model.PersonField{{Name: "Nickname", Value: "ada"}}

	tests := []struct {
		name   string
		fields []model.PersonField
		search string
		want   bool
	}{
		{"no constraints", free, "", true},
		{"no fields at all", nil, "?x=1", true},
		{"constraint satisfied", constrained, "?class=3B&extra=1", true},
		{"constraint without prefix", constrained, "class=3B", true},
		{"constraint violated", constrained, "?class=4A", false},
		{"constraint missing", constrained, "?other=1", false},
		{"empty search against constraint", constrained, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchPageParams(tc.fields, tc.search); got != tc.want {
				t.Errorf("matchPageParams(%q) = %t, want %t", tc.search, got, tc.want)
			}
		})
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, false)
	seedPerson(t, repo, "ada@example.com", "secret", "", true)

	resp, err := svc.Login(dto.LoginRequest{Login: "ada@example.com", Pwd: "secret"}, "", "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := svc.ValidateToken(resp.AuthToken + "x"); err == nil {
		t.Error("tampered token accepted")
	}
	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestRegister(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, false)

	err := svc.Register(dto.RegistrationRequest{
		Name: "Ada", Email: "ada@example.com", Password: "secret",
		OtherFields: []dto.PersonFieldItem{{Name: "Class", Value: "3B", Param: "class"}},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	person := repo.people["ada@example.com"]
	if person == nil {
		t.Fatal("person not stored")
	}
	if person.UserPassword == "secret" {
		t.Error("password stored in clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(person.UserPassword), []byte("secret")) != nil {
		t.Error("stored hash does not match password")
	}
	if person.UserRole != model.RoleStudent {
		t.Errorf("role = %d, want student", person.UserRole)
	}
	if person.Info == "" {
		t.Error("extra fields not stored")
	}

	err = svc.Register(dto.RegistrationRequest{Email: "ada@example.com", Password: "other"})
	if !errors.Is(err, ErrIdentityTaken) {
		t.Errorf("duplicate identity: err = %v", err)
	}
}
