package dto

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type LoginResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Role        int               `json:"role"`
	AuthToken   string            `json:"authToken"`
	SessionID   *uint             `json:"sessionId,omitempty"`
	OtherFields []PersonFieldItem `json:"otherFields,omitempty"`
}

// RetakeInfoDTO answers the "has this user already taken this quiz" probe.
type RetakeInfoDTO struct {
	NumOfRetake int     `json:"NumOfRetake"`
	FinalMark   float64 `json:"FinalMark"`
}

type SubmitResultResponse struct {
	ID          uint `json:"id"`
	PrevResults int  `json:"prevResults"`
}

// QuizSummaryDTO is one row of the quiz titles listing.
type QuizSummaryDTO struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Argument     string    `json:"argument"`
	Season       string    `json:"season"`
	State        int       `json:"state"`
	Link         string    `json:"link"`
	NumQuestions int       `json:"num_questions"`
	Duration     int       `json:"duration"`
	TotalCount   int64     `json:"total_count,omitempty"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
}

type ResultHeaderDTO struct {
	Name           string `json:"name"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Argument       string `json:"argument"`
	Duration       int    `json:"duration"`
	NumOfQuestions int    `json:"num_of_questions"`
}

// ResultDTO is one row of the results search.
type ResultDTO struct {
	ID                   uint            `json:"id"`
	UserName             string          `json:"user_name"`
	UserLogin            string          `json:"user_login"`
	DateCompleted        time.Time       `json:"date_completed"`
	DateReceived         time.Time       `json:"date_received"`
	ElapsedTime          int             `json:"elapsed_time"`
	HighestMark          float64         `json:"highest_mark"`
	LowestMark           float64         `json:"lowest_mark"`
	RoundMark            int             `json:"round_mark"`
	FinalMark            float64         `json:"final_mark"`
	FinalPoints          *float64        `json:"final_points,omitempty"`
	RightQuestsNum       int             `json:"num_correct_answers"`
	WrongQuestsNum       int             `json:"num_wrong_answers"`
	NotValuatedQuestsNum *int            `json:"num_not_valuated,omitempty"`
	NotAnsweredQuestsNum *int            `json:"num_not_answered,omitempty"`
	NumOfRetake          int             `json:"num_of_retake"`
	IsDuplicated         bool            `json:"is_duplicated"`
	ReviewMark           *float64        `json:"review_mark,omitempty"`
	ReviewPoints         *float64        `json:"review_points,omitempty"`
	ReviewDate           *time.Time      `json:"review_date,omitempty"`
	Header               ResultHeaderDTO `json:"header"`
}

// ResultItemDTO is one question row of a result details response.
type ResultItemDTO struct {
	ID                uint     `json:"id"`
	QuestNum          int      `json:"quest_num"`
	TypeOfQuest       int      `json:"type_of_quest"`
	Weight            int      `json:"weight"`
	SelectedAnswers   string   `json:"selected_answers"`
	CorrectedAnswers  string   `json:"corrected_answers"`
	ShortTextQuestion string   `json:"short_text_question"`
	Valid             int      `json:"valid"`
	Score             float64  `json:"score"`
	MaxScore          float64  `json:"max_score"`
	MinScore          float64  `json:"min_score"`
	Points            *float64 `json:"points,omitempty"`
	Feedback          string   `json:"feedback"`
	IsCancelled       *bool    `json:"is_cancelled,omitempty"`
}

type ResultAnswerItemDTO struct {
	ID               uint    `json:"id"`
	IdResultQuestion uint    `json:"id_result_question"`
	AnswerNum        int     `json:"answer_num"`
	Choice           string  `json:"choice"`
	Valuation        string  `json:"valuation"`
	IsGuess          bool    `json:"is_guess"`
	Score            float64 `json:"score"`
	AdditionalText   string  `json:"additional_text"`
	ShortTextAnswer  string  `json:"short_text_answer"`
	ShortTextRemark  string  `json:"short_text_remark"`
}

// RevisionDTO is the stored HTML report attached to a result details response.
type RevisionDTO struct {
	Report   string `json:"report"`
	Origin   string `json:"origin"`
	Charset  string `json:"charset"`
	Language string `json:"language"`
}

type ResultDetailsResponse struct {
	Answers  []ResultItemDTO `json:"Answers"`
	Revision RevisionDTO     `json:"Revision"`
}

// SessionRecoveryDTO is the payload returned by the last-session lookup.
type SessionRecoveryDTO struct {
	SessionID      uint            `json:"sessionId"`
	SessionData    json.RawMessage `json:"sessionData"`
	DateCreated    time.Time       `json:"dateCreated"`
	DateLastUpdate *time.Time      `json:"dateLastUpdate,omitempty"`
}

type ReportDTO struct {
	ID           uint     `json:"id"`
	Report       string   `json:"report"`
	Origin       string   `json:"origin"`
	Charset      string   `json:"charset"`
	Language     string   `json:"language"`
	FinalMark    float64  `json:"final_mark"`
	HighestMark  float64  `json:"highest_mark"`
	FinalPoints  *float64 `json:"final_points,omitempty"`
	ReviewPoints *float64 `json:"review_points,omitempty"`
	UserName     string   `json:"user_name"`
	UserLogin    string   `json:"user_login"`
	QuizName     string   `json:"quiz_name"`
	QuizTitle    string   `json:"quiz_title"`
}
