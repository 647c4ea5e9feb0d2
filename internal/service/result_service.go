package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// baseAnonymousID offsets the numeric alias shown to examiners instead of the
// examinee's real name and login.
const baseAnonymousID = 10000

type ResultService interface {
	Search(params dto.ResultSearchParams, viewerRole int) ([]dto.ResultDTO, error)
	Details(resultID uint) (*dto.ResultDetailsResponse, error)
	Answers(resultID uint) ([]dto.ResultAnswerItemDTO, error)
	EditDetails(req dto.EditResultDetailsRequest, editor string) error
	Review(req dto.ResultReviewUpdate, editor string) error
	Remove(req dto.RemoveResultsRequest, editor string) error
	// Retrieve re-creates a result header from an archived report, for
	// installations restoring results lost to a failed submission.
	Retrieve(ctx context.Context, req dto.RetrieveResultRequest) (*dto.SubmitResultResponse, error)
	SaveReport(req dto.ReportRequest) error
	Report(resultID uint) (*dto.ReportDTO, error)
	// AuditTrail returns the newest audit rows written by the log dispatcher.
	AuditTrail(limit int) ([]model.WebLog, error)
}

type resultService struct {
	resultRepo repository.ResultRepository
	reportRepo repository.ReportRepository
	quizRepo   repository.QuizRepository
	webLogRepo repository.WebLogRepository
	auditLog   *LogDispatcher
}

func NewResultService(
	resultRepo repository.ResultRepository,
	reportRepo repository.ReportRepository,
	quizRepo repository.QuizRepository,
	webLogRepo repository.WebLogRepository,
	auditLog *LogDispatcher,
) ResultService {
	return &resultService{
		resultRepo: resultRepo,
		reportRepo: reportRepo,
		quizRepo:   quizRepo,
		webLogRepo: webLogRepo,
		auditLog:   auditLog,
	}
}

// orderings maps the client-facing sort keys onto column expressions. Anything
// not listed falls back to newest-received first; the query never sees raw
// client input.
var orderings = map[string]string{
	"date": "quiz_results.date_completed DESC",
	"mark": "quiz_results.final_mark DESC",
	"user": "quiz_results.user_name ASC",
	"quiz": "quiz_results.quiz_name ASC",
}

func (s *resultService) Search(params dto.ResultSearchParams, viewerRole int) ([]dto.ResultDTO, error) {
	filter := repository.ResultFilter{
		Title:             params.Title,
		User:              params.User,
		FromMark:          params.FromMark,
		ToMark:            params.ToMark,
		LastMinutes:       params.Last,
		IncludeDuplicates: params.IncDup != nil && *params.IncDup != 0,
		OrderBy:           orderings[params.OrderBy],
		Limit:             params.Top,
	}
	if t, err := parseSearchDate(params.FromDate); err == nil {
		filter.FromDate = &t
	}
	if t, err := parseSearchDate(params.ToDate); err == nil {
		end := t.Add(24*time.Hour - time.Second)
		filter.ToDate = &end
	}

	rows, err := s.resultRepo.Search(filter)
	if err != nil {
		return nil, fmt.Errorf("search results: %w", err)
	}

	out := make([]dto.ResultDTO, 0, len(rows))
	for i := range rows {
		var item dto.ResultDTO
		if err := copier.Copy(&item, &rows[i].QuizResult); err != nil {
			log.Error().Err(err).Uint("resultID", rows[i].ID).Msg("result row mapping failed, row skipped")
			continue
		}
		item.Header = dto.ResultHeaderDTO{
			Name:           rows[i].QuizName,
			Title:          rows[i].QuizTitle,
			Author:         rows[i].Author,
			Argument:       rows[i].Argument,
			Duration:       rows[i].TotalTime,
			NumOfQuestions: rows[i].QuestsNum,
		}
		if viewerRole == model.RoleExaminer {
			item.UserName = fmt.Sprintf("User%d", baseAnonymousID+rows[i].ID)
			item.UserLogin = ""
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *resultService) Details(resultID uint) (*dto.ResultDetailsResponse, error) {
	questions, err := s.resultRepo.FindQuestions(resultID)
	if err != nil {
		return nil, fmt.Errorf("load questions of result %d: %w", resultID, err)
	}

	resp := &dto.ResultDetailsResponse{Answers: make([]dto.ResultItemDTO, 0, len(questions))}
	for i := range questions {
		q := &questions[i]
		var item dto.ResultItemDTO
		if err := copier.Copy(&item, q); err != nil {
			return nil, fmt.Errorf("map question %d: %w", q.ID, err)
		}
		item.TypeOfQuest = q.QuestType
		item.SelectedAnswers, item.CorrectedAnswers = summarizeAnswers(q.Answers)
		resp.Answers = append(resp.Answers, item)
	}

	report, err := s.reportRepo.FindByResultID(resultID)
	if err == nil {
		resp.Revision = dto.RevisionDTO{
			Report:   report.Report,
			Origin:   report.Origin,
			Charset:  report.Charset,
			Language: report.Language,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Err(err).Uint("resultID", resultID).Msg("report lookup failed, details returned without revision")
	}
	return resp, nil
}

// summarizeAnswers flattens a question's answer rows into the two display
// strings of the review table: what the examinee picked and what the stored
// valuation says.
func summarizeAnswers(answers []model.QuizResultAnswer) (selected, corrected string) {
	var sel, cor []string
	for _, a := range answers {
		if a.Choice != "" {
			sel = append(sel, a.Choice)
		} else if a.ShortTextAnswer != "" {
			sel = append(sel, a.ShortTextAnswer)
		}
		if a.Valuation != "" {
			cor = append(cor, a.Valuation)
		}
	}
	return strings.Join(sel, "; "), strings.Join(cor, "; ")
}

func (s *resultService) Answers(resultID uint) ([]dto.ResultAnswerItemDTO, error) {
	answers, err := s.resultRepo.FindAnswers(resultID)
	if err != nil {
		return nil, fmt.Errorf("load answers of result %d: %w", resultID, err)
	}
	out := make([]dto.ResultAnswerItemDTO, 0, len(answers))
	for i := range answers {
		var item dto.ResultAnswerItemDTO
		if err := copier.Copy(&item, &answers[i]); err != nil {
			return nil, fmt.Errorf("map answer %d: %w", answers[i].ID, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *resultService) EditDetails(req dto.EditResultDetailsRequest, editor string) error {
	for _, upd := range req.Results {
		fields := map[string]interface{}{}
		if upd.Valid != nil {
			fields["valid"] = *upd.Valid
		}
		if upd.Score != nil {
			fields["score"] = *upd.Score
		}
		if upd.MaxScore != nil {
			fields["max_score"] = *upd.MaxScore
		}
		if upd.MinScore != nil {
			fields["min_score"] = *upd.MinScore
		}
		if upd.Points != nil {
			fields["points"] = *upd.Points
		}
		if upd.Feedback != nil {
			fields["feedback"] = *upd.Feedback
		}
		if len(fields) == 0 {
			continue
		}
		if err := s.resultRepo.UpdateQuestion(upd.Id, fields); err != nil {
			return fmt.Errorf("update question %d: %w", upd.Id, err)
		}
	}
	s.auditLog.Log(editor, model.LogLevelInfo, fmt.Sprintf("reviewed %d question rows", len(req.Results)))
	return nil
}

func (s *resultService) Review(req dto.ResultReviewUpdate, editor string) error {
	fields := map[string]interface{}{"review_date": time.Now()}
	if req.ReviewMark != nil {
		fields["review_mark"] = *req.ReviewMark
	}
	if req.ReviewPoints != nil {
		fields["review_points"] = *req.ReviewPoints
	}
	if req.RightQuestsNum != nil {
		fields["right_quests_num"] = *req.RightQuestsNum
	}
	if req.WrongQuestsNum != nil {
		fields["wrong_quests_num"] = *req.WrongQuestsNum
	}
	if req.NotAnsweredQuestsNum != nil {
		fields["not_answered_quests_num"] = *req.NotAnsweredQuestsNum
	}
	if req.NotValuatedQuestsNum != nil {
		fields["not_valuated_quests_num"] = *req.NotValuatedQuestsNum
	}
	if err := s.resultRepo.UpdateResult(req.Id, fields); err != nil {
		return fmt.Errorf("review result %d: %w", req.Id, err)
	}
	s.auditLog.Log(editor, model.LogLevelInfo, fmt.Sprintf("result %d reviewed", req.Id))
	return nil
}

func (s *resultService) Remove(req dto.RemoveResultsRequest, editor string) error {
	ids := make([]uint, 0, len(req.Results))
	for _, item := range req.Results {
		ids = append(ids, item.ResultID)
	}
	if err := s.resultRepo.DeleteByIDs(ids); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	s.auditLog.Log(editor, model.LogLevelWarn, fmt.Sprintf("removed %d results", len(ids)))
	return nil
}

func (s *resultService) Retrieve(ctx context.Context, req dto.RetrieveResultRequest) (*dto.SubmitResultResponse, error) {
	quiz, err := s.quizRepo.FindByName(req.QuizName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotAvailable
		}
		return nil, fmt.Errorf("lookup quiz %q: %w", req.QuizName, err)
	}

	prior, err := s.resultRepo.CountPrior(req.QuizName, req.IdentityID, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("count prior results: %w", err)
	}

	points := req.Points
	header := &model.QuizResult{
		QuizName:      req.QuizName,
		QuizTitle:     quiz.Title,
		QuizID:        quiz.ID,
		UserLogin:     req.IdentityID,
		DateCompleted: parseCompletedDate(req.Date),
		FinalPoints:   &points,
		NumOfRetake:   int(prior),
	}
	err = s.resultRepo.Transaction(ctx, func(tx repository.ResultTx) error {
		if err := tx.CreateHeader(header); err != nil {
			return &SubmissionError{Step: "insert-header", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Report != "" {
		report := &model.QuizResultReport{ID: header.ID, Report: req.Report, Origin: "retrieved"}
		if err := s.reportRepo.Save(report); err != nil {
			log.Error().Err(err).Uint("resultID", header.ID).Msg("retrieved report save failed")
		}
	}

	s.auditLog.Log(req.IdentityID, model.LogLevelInfo,
		fmt.Sprintf("result %d retrieved from archive for quiz '%s'", header.ID, req.QuizName))
	return &dto.SubmitResultResponse{ID: header.ID, PrevResults: int(prior)}, nil
}

func (s *resultService) SaveReport(req dto.ReportRequest) error {
	report := &model.QuizResultReport{
		ID:       req.ID,
		Report:   req.Report,
		Origin:   req.Origin,
		Charset:  req.Charset,
		Language: req.Language,
	}
	if err := s.reportRepo.Save(report); err != nil {
		return fmt.Errorf("save report for result %d: %w", req.ID, err)
	}
	return nil
}

func (s *resultService) Report(resultID uint) (*dto.ReportDTO, error) {
	report, err := s.reportRepo.FindByResultID(resultID)
	if err != nil {
		return nil, fmt.Errorf("load report of result %d: %w", resultID, err)
	}
	out := &dto.ReportDTO{
		ID:       report.ID,
		Report:   report.Report,
		Origin:   report.Origin,
		Charset:  report.Charset,
		Language: report.Language,
	}
	result, err := s.resultRepo.FindByID(resultID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, nil
		}
		return nil, fmt.Errorf("load result %d: %w", resultID, err)
	}
	out.FinalMark = result.FinalMark
	out.HighestMark = result.HighestMark
	out.FinalPoints = result.FinalPoints
	out.ReviewPoints = result.ReviewPoints
	out.UserName = result.UserName
	out.UserLogin = result.UserLogin
	out.QuizName = result.QuizName
	out.QuizTitle = result.QuizTitle
	return out, nil
}

const defaultAuditTrailLimit = 100

func (s *resultService) AuditTrail(limit int) ([]model.WebLog, error) {
	if limit <= 0 {
		limit = defaultAuditTrailLimit
	}
	entries, err := s.webLogRepo.FindRecent(limit)
	if err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}
	return entries, nil
}

func parseSearchDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
