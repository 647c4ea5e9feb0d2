package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/repository"
	"github.com/quizfaber/quizserver/internal/sqlutil"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	maxShortTextLen = 1000
	maxChoiceLen    = 500
)

// SubmissionError tags a failed submission with the pipeline step that broke,
// so the client log and the audit trail say where the graph write stopped.
type SubmissionError struct {
	Step string
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed at %s: %v", e.Step, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ErrQuizNotAvailable is returned when the target quiz is missing or not
// published.
var ErrQuizNotAvailable = errors.New("quiz not available for submissions")

// ErrIdentityUnknown is returned when the submitting identity has no account.
var ErrIdentityUnknown = errors.New("submitting identity is unknown")

type ResultSubmissionService interface {
	// Submit persists one completed attempt: header, questions, answers and
	// the HTML report in a single transaction. sessionID, when known, gets
	// linked to the quiz so the session stops being recoverable.
	Submit(ctx context.Context, req dto.SubmitResultRequest, sessionID *uint) (*dto.SubmitResultResponse, error)
	// RetakeInfo reports whether the user already has a result on the quiz.
	RetakeInfo(quizName, userLogin string) (*dto.RetakeInfoDTO, error)
}

type resultSubmissionService struct {
	quizRepo    repository.QuizRepository
	resultRepo  repository.ResultRepository
	personRepo  repository.PersonRepository
	sessionRepo repository.SessionRepository
	auditLog    *LogDispatcher
}

func NewResultSubmissionService(
	quizRepo repository.QuizRepository,
	resultRepo repository.ResultRepository,
	personRepo repository.PersonRepository,
	sessionRepo repository.SessionRepository,
	auditLog *LogDispatcher,
) ResultSubmissionService {
	return &resultSubmissionService{
		quizRepo:    quizRepo,
		resultRepo:  resultRepo,
		personRepo:  personRepo,
		sessionRepo: sessionRepo,
		auditLog:    auditLog,
	}
}

func (s *resultSubmissionService) Submit(ctx context.Context, req dto.SubmitResultRequest, sessionID *uint) (*dto.SubmitResultResponse, error) {
	person, err := s.personRepo.FindByIdentity(req.CurrentUser.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityUnknown
		}
		return nil, fmt.Errorf("lookup identity %q: %w", req.CurrentUser.Email, err)
	}
	if !person.IsEnabled {
		s.auditLog.Log(req.CurrentUser.Email, model.LogLevelWarn,
			fmt.Sprintf("result for quiz '%s' rejected, account disabled", req.Options.Name))
		return nil, ErrUserDisabled
	}

	quiz, err := s.quizRepo.FindByName(req.Options.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotAvailable
		}
		return nil, fmt.Errorf("lookup quiz %q: %w", req.Options.Name, err)
	}
	if quiz.State != model.QuizStatePublished {
		return nil, ErrQuizNotAvailable
	}

	// The count and the insert are not atomic: two submissions racing on the
	// same user and quiz can both pass as non-duplicates. Accepted, the search
	// endpoints can still surface both rows.
	prior, err := s.resultRepo.CountPrior(req.Options.Name, req.CurrentUser.Email, req.Options.ID)
	if err != nil {
		return nil, fmt.Errorf("count prior results: %w", err)
	}

	header := s.buildHeader(req, quiz, prior)
	err = s.resultRepo.Transaction(ctx, func(tx repository.ResultTx) error {
		if err := tx.CreateHeader(header); err != nil {
			return &SubmissionError{Step: "insert-header", Err: err}
		}
		if header.ID == 0 {
			return &SubmissionError{Step: "get-generated-id", Err: errors.New("header row has no generated id")}
		}
		for i := range req.Questions {
			question := buildQuestion(&req.Questions[i], header.ID, i)
			if err := tx.CreateQuestion(question); err != nil {
				return &SubmissionError{Step: "insert-question", Err: fmt.Errorf("question %d: %w", question.QuestNum, err)}
			}
			if question.ID == 0 {
				return &SubmissionError{Step: "get-generated-id", Err: fmt.Errorf("question %d row has no generated id", question.QuestNum)}
			}
			answers := buildAnswers(req.Questions[i].Answers, question.ID)
			if err := tx.CreateAnswers(answers); err != nil {
				return &SubmissionError{Step: "insert-answers", Err: fmt.Errorf("question %d: %w", question.QuestNum, err)}
			}
		}
		if req.Report != nil && req.Report.Report != "" {
			report := &model.QuizResultReport{
				ID:       header.ID,
				Report:   req.Report.Report,
				Origin:   req.Report.Origin,
				Charset:  req.Options.HtmlCharset,
				Language: req.Options.HtmlLanguage,
			}
			// A broken report never costs the result graph.
			if err := tx.SaveReport(report); err != nil {
				log.Error().Err(err).Uint("resultID", header.ID).Msg("report save failed, result kept without report")
			}
		}
		return nil
	})
	if err != nil {
		var subErr *SubmissionError
		if errors.As(err, &subErr) {
			s.auditLog.Log(req.CurrentUser.Email, model.LogLevelError,
				fmt.Sprintf("result for quiz '%s' rejected at step %s", req.Options.Name, subErr.Step))
		}
		return nil, err
	}

	if sessionID != nil {
		if err := s.sessionRepo.LinkQuiz(*sessionID, quiz.ID); err != nil {
			log.Error().Err(err).Uint("sessionID", *sessionID).Msg("could not link session to quiz")
		}
	}

	s.auditLog.Log(req.CurrentUser.Email, model.LogLevelInfo,
		fmt.Sprintf("result %d saved for quiz '%s' (retake %d, duplicated %t)",
			header.ID, req.Options.Name, header.NumOfRetake, header.IsDuplicated))

	return &dto.SubmitResultResponse{ID: header.ID, PrevResults: int(prior)}, nil
}

func (s *resultSubmissionService) RetakeInfo(quizName, userLogin string) (*dto.RetakeInfoDTO, error) {
	prior, err := s.resultRepo.FindPrior(quizName, userLogin)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.RetakeInfoDTO{NumOfRetake: -1}, nil
		}
		return nil, fmt.Errorf("lookup prior result: %w", err)
	}
	return &dto.RetakeInfoDTO{NumOfRetake: prior.NumOfRetake, FinalMark: prior.FinalMark}, nil
}

func (s *resultSubmissionService) buildHeader(req dto.SubmitResultRequest, quiz *model.Quiz, prior int64) *model.QuizResult {
	header := &model.QuizResult{
		QuizName:             req.Options.Name,
		QuizTitle:            req.Options.Title,
		QuizID:               quiz.ID,
		UserName:             req.CurrentUser.Name,
		UserLogin:            req.CurrentUser.Email,
		DateCompleted:        parseCompletedDate(req.DateCompleted),
		QuestsNum:            req.Options.NumQuestions,
		HighestMark:          req.Options.MaxMark,
		LowestMark:           req.Options.MinMark,
		RoundMark:            req.Options.RoundMark,
		FinalMark:            req.Mark,
		TotalTime:            req.Options.MaxTime,
		ElapsedTime:          req.Time,
		RightQuestsNum:       req.NRight,
		WrongQuestsNum:       req.NWrong,
		NotValuatedQuestsNum: req.NNotValuated,
		NotAnsweredQuestsNum: req.NNotAnswered,
		NumOfRetake:          req.NumOfRetake,
		IsDuplicated:         prior > 0,
	}
	if req.Points != nil {
		points := *req.Points
		if req.Options.DecimalPlaces != nil {
			points = roundTo(points, *req.Options.DecimalPlaces)
		}
		header.FinalPoints = &points
	}
	return header
}

// buildQuestion numbers a stored question from the client-sent num when
// present, falling back to the position in the submitted list for older
// clients that do not send it.
func buildQuestion(q *dto.SubmittedQuestion, resultID uint, position int) *model.QuizResultQuestion {
	num := position + 1
	if q.Num != nil {
		num = *q.Num
	}
	return &model.QuizResultQuestion{
		IdQuizResult:      resultID,
		QuestNum:          num,
		QuestType:         q.TypeOfQuestion,
		Weight:            q.Weight,
		ShortTextQuestion: sqlutil.Truncate(q.ShortTextQuestion, maxShortTextLen),
		Valid:             q.Valid,
		Score:             q.Score,
		MaxScore:          q.MaxScore,
		MinScore:          q.MinScore,
		Points:            q.Points,
	}
}

func buildAnswers(answers []dto.SubmittedAnswer, questionID uint) []model.QuizResultAnswer {
	out := make([]model.QuizResultAnswer, 0, len(answers))
	for i, a := range answers {
		out = append(out, model.QuizResultAnswer{
			IdResultQuestion: questionID,
			AnswerNum:        i + 1,
			Choice:           sqlutil.Truncate(a.Choice, maxChoiceLen),
			Valuation:        sqlutil.Truncate(a.Valuation, maxChoiceLen),
			IsGuess:          a.IsGuess,
			Score:            a.Score,
			AdditionalText:   a.AdditionalText,
			ShortTextAnswer:  sqlutil.Truncate(a.ShortTextAnswer, maxShortTextLen),
			ShortTextRemark:  sqlutil.Truncate(a.ShortTextRemark, maxShortTextLen),
		})
	}
	return out
}

func parseCompletedDate(raw string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now()
}

func roundTo(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
