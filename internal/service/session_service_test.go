package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/model"
)

func strPtr(s string) *string { return &s }
func uintPtr(v uint) *uint    { return &v }

func TestPickRecoverable(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		sessions []model.QuizSession
		want     uint // 0 means nothing picked
	}{
		{
			name: "newest with data wins",
			sessions: []model.QuizSession{
				{SessionID: 3, SessionData: strPtr(`{"q":1}`), DateCreated: now},
				{SessionID: 2, SessionData: strPtr(`{"q":1}`), DateCreated: now.Add(-time.Hour)},
			},
			want: 3,
		},
		{
			name: "empty blob skipped",
			sessions: []model.QuizSession{
				{SessionID: 3, SessionData: strPtr(""), DateCreated: now},
				{SessionID: 2, SessionData: strPtr(`{"q":1}`), DateCreated: now.Add(-time.Hour)},
			},
			want: 2,
		},
		{
			name: "nil blob skipped",
			sessions: []model.QuizSession{
				{SessionID: 3, DateCreated: now},
			},
			want: 0,
		},
		{
			name: "logged out session skipped",
			sessions: []model.QuizSession{
				{SessionID: 3, SessionData: strPtr(`{"q":1}`), IpLogout: strPtr("10.0.0.1"), DateCreated: now},
			},
			want: 0,
		},
		{
			name: "finished session skipped",
			sessions: []model.QuizSession{
				{SessionID: 3, SessionData: strPtr(`{"q":1}`), QuizID: uintPtr(7), DateCreated: now},
			},
			want: 0,
		},
		{
			name: "nothing to pick",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			picked := pickRecoverable(tc.sessions)
			switch {
			case tc.want == 0 && picked != nil:
				t.Errorf("picked session %d, want none", picked.SessionID)
			case tc.want != 0 && picked == nil:
				t.Errorf("picked nothing, want session %d", tc.want)
			case tc.want != 0 && picked.SessionID != tc.want:
				t.Errorf("picked session %d, want %d", picked.SessionID, tc.want)
			}
		})
	}
}

func TestLastRecoverableReturnsBlob(t *testing.T) {
	repo := &fakeSessionRepo{recoverable: []model.QuizSession{
		{SessionID: 4, SessionData: strPtr(`{"questions":["a"],"time":30}`), DateCreated: time.Now()},
	}}
	svc := NewSessionService(repo, disabledAuditLog())

	recovery, err := svc.LastRecoverable(1, 9)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if recovery == nil {
		t.Fatal("no recovery returned")
	}
	if recovery.SessionID != 4 {
		t.Errorf("sessionID = %d, want 4", recovery.SessionID)
	}
	var blob map[string]json.RawMessage
	if err := json.Unmarshal(recovery.SessionData, &blob); err != nil {
		t.Fatalf("returned blob unparsable: %v", err)
	}

	repo.recoverable = nil
	recovery, err = svc.LastRecoverable(1, 9)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if recovery != nil {
		t.Errorf("recovery = %+v, want nil", recovery)
	}
}

func TestUpdateFirstOverwritesAndClears(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := NewSessionService(repo, disabledAuditLog())

	err := svc.UpdateFirst(dto.SessionUpdateFirstRequest{
		SessionID:   5,
		SessionData: json.RawMessage(`{"questions":[],"time":0}`),
	})
	if err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if data := repo.dataWrites[5]; data == nil || *data != `{"questions":[],"time":0}` {
		t.Errorf("stored data = %v", data)
	}

	if err := svc.UpdateFirst(dto.SessionUpdateFirstRequest{SessionID: 5}); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if data, ok := repo.dataWrites[5]; !ok || data != nil {
		t.Errorf("clear did not store nil, got %v", data)
	}

	err = svc.UpdateFirst(dto.SessionUpdateFirstRequest{
		SessionID:   5,
		SessionData: json.RawMessage(`{not json`),
	})
	if err == nil {
		t.Error("invalid JSON accepted")
	}
}

func TestOpenAndCloseSession(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := NewSessionService(repo, disabledAuditLog())

	session, err := svc.Open(7, "10.0.0.5", "agent/1.0")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if session.SessionID == 0 || session.PersonID != 7 || session.IpLogin != "10.0.0.5" {
		t.Errorf("session = %+v", session)
	}
	if session.UserAgent == nil || *session.UserAgent != "agent/1.0" {
		t.Errorf("user agent = %v", session.UserAgent)
	}

	if err := svc.Close(session.SessionID, "10.0.0.6"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if repo.closedID != session.SessionID || repo.closedIP != "10.0.0.6" {
		t.Errorf("close recorded (%d, %s)", repo.closedID, repo.closedIP)
	}
}
