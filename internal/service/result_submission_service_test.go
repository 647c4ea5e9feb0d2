package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/repository"
	"gorm.io/gorm"
)

type fakeQuizRepo struct {
	quizzes map[string]*model.Quiz
}

func (f *fakeQuizRepo) FindByName(name string) (*model.Quiz, error) {
	quiz, ok := f.quizzes[name]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (f *fakeQuizRepo) FindPublished(string, int, int) ([]model.Quiz, int64, error) {
	return nil, 0, nil
}

// fakeResultRepo captures the submission graph. Writes only become visible in
// the committed fields when the transaction callback returns nil.
type fakeResultRepo struct {
	prior       int64
	priorResult *model.QuizResult
	nextID      uint
	failAnswers bool

	countQuizID uint
	searchRows  []repository.ResultRow
	lastFilter  repository.ResultFilter
	questions   []model.QuizResultQuestion
	updates     map[uint]map[string]interface{}
	deletedIDs  []uint

	committedHeader    *model.QuizResult
	committedQuestions []model.QuizResultQuestion
	committedAnswers   []model.QuizResultAnswer
	committedReports   []model.QuizResultReport
}

func (f *fakeResultRepo) Transaction(_ context.Context, fn func(tx repository.ResultTx) error) error {
	tx := &fakeResultTx{repo: f}
	if err := fn(tx); err != nil {
		return err
	}
	f.committedHeader = tx.header
	f.committedQuestions = tx.questions
	f.committedAnswers = tx.answers
	f.committedReports = tx.reports
	return nil
}

func (f *fakeResultRepo) FindPrior(string, string) (*model.QuizResult, error) {
	if f.priorResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.priorResult, nil
}

func (f *fakeResultRepo) CountPrior(_, _ string, quizID uint) (int64, error) {
	f.countQuizID = quizID
	return f.prior, nil
}

func (f *fakeResultRepo) FindByID(uint) (*model.QuizResult, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeResultRepo) Search(filter repository.ResultFilter) ([]repository.ResultRow, error) {
	f.lastFilter = filter
	return f.searchRows, nil
}

func (f *fakeResultRepo) FindQuestions(uint) ([]model.QuizResultQuestion, error) {
	return f.questions, nil
}

func (f *fakeResultRepo) FindAnswers(uint) ([]model.QuizResultAnswer, error) { return nil, nil }

func (f *fakeResultRepo) UpdateQuestion(id uint, fields map[string]interface{}) error {
	if f.updates == nil {
		f.updates = map[uint]map[string]interface{}{}
	}
	f.updates[id] = fields
	return nil
}

func (f *fakeResultRepo) UpdateResult(id uint, fields map[string]interface{}) error {
	if f.updates == nil {
		f.updates = map[uint]map[string]interface{}{}
	}
	f.updates[id] = fields
	return nil
}

func (f *fakeResultRepo) DeleteByIDs(ids []uint) error {
	f.deletedIDs = ids
	return nil
}

type fakeResultTx struct {
	repo      *fakeResultRepo
	header    *model.QuizResult
	questions []model.QuizResultQuestion
	answers   []model.QuizResultAnswer
	reports   []model.QuizResultReport
}

func (t *fakeResultTx) CreateHeader(result *model.QuizResult) error {
	t.repo.nextID++
	result.ID = t.repo.nextID
	t.header = result
	return nil
}

func (t *fakeResultTx) CreateQuestion(question *model.QuizResultQuestion) error {
	t.repo.nextID++
	question.ID = t.repo.nextID
	t.questions = append(t.questions, *question)
	return nil
}

func (t *fakeResultTx) CreateAnswers(answers []model.QuizResultAnswer) error {
	if t.repo.failAnswers {
		return errors.New("answer table unavailable")
	}
	t.answers = append(t.answers, answers...)
	return nil
}

func (t *fakeResultTx) SaveReport(report *model.QuizResultReport) error {
	t.reports = append(t.reports, *report)
	return nil
}

type fakeReportRepo struct {
	saved []model.QuizResultReport
}

func (f *fakeReportRepo) Save(report *model.QuizResultReport) error {
	f.saved = append(f.saved, *report)
	return nil
}

func (f *fakeReportRepo) FindByResultID(uint) (*model.QuizResultReport, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeSessionRepo struct {
	linkedSession uint
	linkedQuiz    uint
	recoverable   []model.QuizSession
	created       []model.QuizSession
	dataWrites    map[uint]*string
	closedID      uint
	closedIP      string
}

func (f *fakeSessionRepo) Connection(_ context.Context, fn func(tx repository.SessionTx) error) error {
	return nil
}

func (f *fakeSessionRepo) Create(session *model.QuizSession) error {
	session.SessionID = uint(len(f.created) + 1)
	f.created = append(f.created, *session)
	return nil
}

func (f *fakeSessionRepo) FindByID(uint) (*model.QuizSession, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSessionRepo) FindRecoverable(uint, uint, time.Time) ([]model.QuizSession, error) {
	return f.recoverable, nil
}

func (f *fakeSessionRepo) SetData(sessionID uint, data *string, _ time.Time) error {
	if f.dataWrites == nil {
		f.dataWrites = map[uint]*string{}
	}
	f.dataWrites[sessionID] = data
	return nil
}

func (f *fakeSessionRepo) Close(sessionID uint, ip string) error {
	f.closedID = sessionID
	f.closedIP = ip
	return nil
}
func (f *fakeSessionRepo) LinkQuiz(sessionID, quizID uint) error {
	f.linkedSession = sessionID
	f.linkedQuiz = quizID
	return nil
}

func disabledAuditLog() *LogDispatcher {
	return NewLogDispatcher(dispatcherConfig(7), &fakeLogStore{})
}

func publishedQuiz(name string) *model.Quiz {
	return &model.Quiz{ID: 55, QuizName: name, Title: "History 101", State: model.QuizStatePublished}
}

func enabledPersonRepo() *fakePersonRepo {
	return &fakePersonRepo{people: map[string]*model.Person{
		"ada@example.com": {ID: 1, UserIdentity: "ada@example.com", IsEnabled: true},
	}}
}

func submission(quizName string, retake int) dto.SubmitResultRequest {
	num := 3
	return dto.SubmitResultRequest{
		Options: dto.QuizOptions{
			ID: 55, Name: quizName, Title: "History 101", NumQuestions: 2,
			MaxMark: 10, MinMark: 0, MaxTime: 600,
		},
		CurrentUser:   dto.SubmittedUser{Name: "Ada", Email: "ada@example.com"},
		DateCompleted: "2026-08-30 10:15:00",
		Mark:          7.5,
		Time:          412,
		NRight:        3,
		NWrong:        1,
		NumOfRetake:   retake,
		Questions: []dto.SubmittedQuestion{
			{Num: &num, TypeOfQuestion: 1, Weight: 1, ShortTextQuestion: "Who?", Valid: 1, Score: 1, MaxScore: 1,
				Answers: []dto.SubmittedAnswer{{Choice: "Caesar", Score: 1}, {Choice: "Brutus"}}},
			{TypeOfQuestion: 2, Weight: 1, ShortTextQuestion: "When?", Valid: 0, Score: 0, MaxScore: 1,
				Answers: []dto.SubmittedAnswer{{ShortTextAnswer: "44 BC"}}},
		},
		Report: &dto.ReportPayload{Report: "<html>report</html>", Origin: "client"},
	}
}

func newSubmissionService(quizRepo *fakeQuizRepo, resultRepo *fakeResultRepo, sessionRepo *fakeSessionRepo) ResultSubmissionService {
	return NewResultSubmissionService(quizRepo, resultRepo, enabledPersonRepo(), sessionRepo, disabledAuditLog())
}

func TestSubmitPersistsWholeGraph(t *testing.T) {
	quizRepo := &fakeQuizRepo{quizzes: map[string]*model.Quiz{"rome": publishedQuiz("rome")}}
	resultRepo := &fakeResultRepo{}
	sessionRepo := &fakeSessionRepo{}
	svc := newSubmissionService(quizRepo, resultRepo, sessionRepo)

	sessionID := uint(9)
	resp, err := svc.Submit(context.Background(), submission("rome", 0), &sessionID)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.ID == 0 || resp.PrevResults != 0 {
		t.Errorf("response = %+v", resp)
	}

	header := resultRepo.committedHeader
	if header == nil {
		t.Fatal("header not committed")
	}
	if header.IsDuplicated {
		t.Error("first take flagged as duplicate")
	}
	if header.QuizID != 55 || header.UserLogin != "ada@example.com" || header.FinalMark != 7.5 {
		t.Errorf("header = %+v", header)
	}
	if got := header.DateCompleted.Format("2006-01-02 15:04:05"); got != "2026-08-30 10:15:00" {
		t.Errorf("date completed = %s", got)
	}

	if len(resultRepo.committedQuestions) != 2 {
		t.Fatalf("committed %d questions", len(resultRepo.committedQuestions))
	}
	if resultRepo.committedQuestions[0].QuestNum != 3 {
		t.Errorf("explicit num ignored: %d", resultRepo.committedQuestions[0].QuestNum)
	}
	if resultRepo.committedQuestions[1].QuestNum != 2 {
		t.Errorf("positional fallback = %d, want 2", resultRepo.committedQuestions[1].QuestNum)
	}

	if len(resultRepo.committedAnswers) != 3 {
		t.Fatalf("committed %d answers", len(resultRepo.committedAnswers))
	}
	first := resultRepo.committedAnswers[0]
	if first.IdResultQuestion != resultRepo.committedQuestions[0].ID || first.AnswerNum != 1 {
		t.Errorf("answer linkage = %+v", first)
	}

	if len(resultRepo.committedReports) != 1 || resultRepo.committedReports[0].ID != header.ID {
		t.Errorf("report not committed under result id: %+v", resultRepo.committedReports)
	}
	if sessionRepo.linkedSession != 9 || sessionRepo.linkedQuiz != 55 {
		t.Errorf("session link = (%d, %d)", sessionRepo.linkedSession, sessionRepo.linkedQuiz)
	}
}

func TestSubmitClassifiesDuplicates(t *testing.T) {
	quizRepo := &fakeQuizRepo{quizzes: map[string]*model.Quiz{"rome": publishedQuiz("rome")}}
	resultRepo := &fakeResultRepo{prior: 1}
	svc := newSubmissionService(quizRepo, resultRepo, &fakeSessionRepo{})

	// Any stored prior row makes the new one a duplicate, a matching retake
	// counter does not excuse it.
	resp, err := svc.Submit(context.Background(), submission("rome", 1), nil)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.PrevResults != 1 {
		t.Errorf("prevResults = %d, want 1", resp.PrevResults)
	}
	if !resultRepo.committedHeader.IsDuplicated {
		t.Error("retake with a prior result not flagged as duplicate")
	}
	if resultRepo.countQuizID != 55 {
		t.Errorf("prior count scoped to quiz %d, want 55", resultRepo.countQuizID)
	}

	resultRepo = &fakeResultRepo{prior: 0}
	svc = newSubmissionService(quizRepo, resultRepo, &fakeSessionRepo{})
	if _, err := svc.Submit(context.Background(), submission("rome", 0), nil); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resultRepo.committedHeader.IsDuplicated {
		t.Error("first result flagged as duplicate")
	}
}

func TestSubmitRejectsUnknownOrDisabledIdentity(t *testing.T) {
	quizRepo := &fakeQuizRepo{quizzes: map[string]*model.Quiz{"rome": publishedQuiz("rome")}}
	resultRepo := &fakeResultRepo{}
	personRepo := &fakePersonRepo{people: map[string]*model.Person{}}
	svc := NewResultSubmissionService(quizRepo, resultRepo, personRepo, &fakeSessionRepo{}, disabledAuditLog())

	if _, err := svc.Submit(context.Background(), submission("rome", 0), nil); !errors.Is(err, ErrIdentityUnknown) {
		t.Errorf("unknown identity: err = %v", err)
	}

	personRepo.people["ada@example.com"] = &model.Person{ID: 1, UserIdentity: "ada@example.com", IsEnabled: false}
	if _, err := svc.Submit(context.Background(), submission("rome", 0), nil); !errors.Is(err, ErrUserDisabled) {
		t.Errorf("disabled identity: err = %v", err)
	}

	if resultRepo.committedHeader != nil {
		t.Error("result committed for a rejected identity")
	}
}

func TestSubmitRejectsUnavailableQuiz(t *testing.T) {
	draft := publishedQuiz("draft")
	draft.State = 0
	quizRepo := &fakeQuizRepo{quizzes: map[string]*model.Quiz{"draft": draft}}
	svc := newSubmissionService(quizRepo, &fakeResultRepo{}, &fakeSessionRepo{})

	if _, err := svc.Submit(context.Background(), submission("draft", 0), nil); !errors.Is(err, ErrQuizNotAvailable) {
		t.Errorf("unpublished quiz: err = %v", err)
	}
	if _, err := svc.Submit(context.Background(), submission("missing", 0), nil); !errors.Is(err, ErrQuizNotAvailable) {
		t.Errorf("missing quiz: err = %v", err)
	}
}

func TestSubmitRollsBackOnAnswerFailure(t *testing.T) {
	quizRepo := &fakeQuizRepo{quizzes: map[string]*model.Quiz{"rome": publishedQuiz("rome")}}
	resultRepo := &fakeResultRepo{failAnswers: true}
	svc := newSubmissionService(quizRepo, resultRepo, &fakeSessionRepo{})

	_, err := svc.Submit(context.Background(), submission("rome", 0), nil)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("err = %v, want SubmissionError", err)
	}
	if subErr.Step != "insert-answers" {
		t.Errorf("step = %q, want insert-answers", subErr.Step)
	}
	if resultRepo.committedHeader != nil || len(resultRepo.committedQuestions) != 0 {
		t.Error("partial graph committed despite failure")
	}
	if len(resultRepo.committedReports) != 0 {
		t.Error("report committed for a failed submission")
	}
}

func TestSubmitAcceptsEmptyQuestionList(t *testing.T) {
	quizRepo := &fakeQuizRepo{quizzes: map[string]*model.Quiz{"rome": publishedQuiz("rome")}}
	resultRepo := &fakeResultRepo{}
	svc := newSubmissionService(quizRepo, resultRepo, &fakeSessionRepo{})

	req := submission("rome", 0)
	req.Questions = nil
	req.Report = nil
	resp, err := svc.Submit(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.ID == 0 {
		t.Error("no id for header-only submission")
	}
	if len(resultRepo.committedQuestions) != 0 {
		t.Errorf("committed %d questions, want 0", len(resultRepo.committedQuestions))
	}
}

func TestSubmitTruncatesOversizedText(t *testing.T) {
	quizRepo := &fakeQuizRepo{quizzes: map[string]*model.Quiz{"rome": publishedQuiz("rome")}}
	resultRepo := &fakeResultRepo{}
	svc := newSubmissionService(quizRepo, resultRepo, &fakeSessionRepo{})

	req := submission("rome", 0)
	req.Questions[0].ShortTextQuestion = strings.Repeat("q", 1500)
	req.Questions[0].Answers[0].Choice = strings.Repeat("c", 700)
	if _, err := svc.Submit(context.Background(), req, nil); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if got := len(resultRepo.committedQuestions[0].ShortTextQuestion); got != maxShortTextLen {
		t.Errorf("question text length = %d, want %d", got, maxShortTextLen)
	}
	if got := len(resultRepo.committedAnswers[0].Choice); got != maxChoiceLen {
		t.Errorf("choice length = %d, want %d", got, maxChoiceLen)
	}
}

func TestRetakeInfo(t *testing.T) {
	quizRepo := &fakeQuizRepo{quizzes: map[string]*model.Quiz{}}
	resultRepo := &fakeResultRepo{}
	svc := newSubmissionService(quizRepo, resultRepo, &fakeSessionRepo{})

	info, err := svc.RetakeInfo("rome", "ada@example.com")
	if err != nil {
		t.Fatalf("retake info failed: %v", err)
	}
	if info.NumOfRetake != -1 {
		t.Errorf("no prior result: NumOfRetake = %d, want -1", info.NumOfRetake)
	}

	resultRepo.priorResult = &model.QuizResult{NumOfRetake: 2, FinalMark: 8.25}
	info, err = svc.RetakeInfo("rome", "ada@example.com")
	if err != nil {
		t.Fatalf("retake info failed: %v", err)
	}
	if info.NumOfRetake != 2 || info.FinalMark != 8.25 {
		t.Errorf("info = %+v", info)
	}
}
