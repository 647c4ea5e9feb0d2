package service

import (
	"encoding/json"
	"fmt"

	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/repository"
	"github.com/rs/zerolog/log"
)

type QuizService interface {
	// ListPublished pages through the published quiz titles. page is 1-based.
	ListPublished(titleFilter string, pageSize, page int) ([]dto.QuizSummaryDTO, error)
}

type quizService struct {
	quizRepo repository.QuizRepository
}

func NewQuizService(quizRepo repository.QuizRepository) QuizService {
	return &quizService{quizRepo: quizRepo}
}

// quizProperties is the subset of the stored properties JSON the listing shows.
type quizProperties struct {
	Duration int `json:"Duration"`
}

func (s *quizService) ListPublished(titleFilter string, pageSize, page int) ([]dto.QuizSummaryDTO, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page < 1 {
		page = 1
	}
	quizzes, total, err := s.quizRepo.FindPublished(titleFilter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	out := make([]dto.QuizSummaryDTO, 0, len(quizzes))
	for _, q := range quizzes {
		summary := dto.QuizSummaryDTO{
			ID:           q.ID,
			Name:         q.QuizName,
			Title:        q.Title,
			Author:       q.Author,
			Argument:     q.Argument,
			Season:       q.Season,
			State:        q.State,
			Link:         q.Link,
			NumQuestions: q.NumQuestions,
			TotalCount:   total,
			DateCreated:  q.DateCreated,
			DateModified: q.DateModified,
		}
		if q.Properties != "" {
			var props quizProperties
			if err := json.Unmarshal([]byte(q.Properties), &props); err != nil {
				log.Warn().Err(err).Str("quiz", q.QuizName).Msg("quiz properties blob unreadable")
			} else {
				summary.Duration = props.Duration
			}
		}
		out = append(out, summary)
	}
	return out, nil
}
