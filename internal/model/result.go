package model

import "time"

// QuizResult is the header row of one completed quiz attempt. It owns its
// question rows, which own their answer rows; the whole graph is written in a
// single transaction at submission time.
type QuizResult struct {
	ID                   uint                 `gorm:"primarykey" json:"id"`
	QuizName             string               `json:"quiz_name" gorm:"not null;index:idx_result_quiz_user"`
	QuizTitle            string               `json:"quiz_title"`
	QuizID               uint                 `json:"quiz_id" gorm:"index"`
	UserName             string               `json:"user_name"`
	UserLogin            string               `json:"user_login" gorm:"not null;index:idx_result_quiz_user"`
	DateCompleted        time.Time            `json:"date_completed"`
	DateReceived         time.Time            `json:"date_received" gorm:"autoCreateTime"`
	QuestsNum            int                  `json:"quests_num"`
	HighestMark          float64              `json:"highest_mark"`
	LowestMark           float64              `json:"lowest_mark"`
	RoundMark            int                  `json:"round_mark"`
	FinalMark            float64              `json:"final_mark"`
	FinalPoints          *float64             `json:"final_points,omitempty"`
	TotalTime            int                  `json:"total_time"`
	ElapsedTime          int                  `json:"elapsed_time"`
	RightQuestsNum       int                  `json:"right_quests_num"`
	WrongQuestsNum       int                  `json:"wrong_quests_num"`
	NotValuatedQuestsNum *int                 `json:"not_valuated_quests_num,omitempty"`
	NotAnsweredQuestsNum *int                 `json:"not_answered_quests_num,omitempty"`
	NumOfRetake          int                  `json:"num_of_retake"`
	IsDuplicated         bool                 `json:"is_duplicated"`
	ReviewMark           *float64             `json:"review_mark,omitempty"`
	ReviewPoints         *float64             `json:"review_points,omitempty"`
	ReviewDate           *time.Time           `json:"review_date,omitempty"`
	Questions            []QuizResultQuestion `json:"questions,omitempty" gorm:"foreignKey:IdQuizResult;constraint:OnDelete:CASCADE"`
}

type QuizResultQuestion struct {
	ID                uint               `gorm:"primarykey" json:"id"`
	IdQuizResult      uint               `json:"id_quiz_result" gorm:"not null;index"`
	QuestNum          int                `json:"quest_num"`
	QuestType         int                `json:"quest_type"`
	Weight            int                `json:"weight" gorm:"default:1"`
	ShortTextQuestion string             `json:"short_text_question" gorm:"size:1000"`
	Valid             int                `json:"valid"`
	Score             float64            `json:"score"`
	MaxScore          float64            `json:"max_score"`
	MinScore          float64            `json:"min_score"`
	Points            *float64           `json:"points,omitempty"`
	Feedback          string             `json:"feedback" gorm:"type:text"`
	IsCancelled       *bool              `json:"is_cancelled,omitempty"`
	Answers           []QuizResultAnswer `json:"answers,omitempty" gorm:"foreignKey:IdResultQuestion;constraint:OnDelete:CASCADE"`
}

type QuizResultAnswer struct {
	ID               uint    `gorm:"primarykey" json:"id"`
	IdResultQuestion uint    `json:"id_result_question" gorm:"not null;index"`
	AnswerNum        int     `json:"answer_num"`
	Choice           string  `json:"choice" gorm:"size:500"`
	Valuation        string  `json:"valuation" gorm:"size:500"`
	IsGuess          bool    `json:"is_guess"`
	Score            float64 `json:"score"`
	AdditionalText   string  `json:"additional_text" gorm:"type:text"`
	ShortTextAnswer  string  `json:"short_text_answer" gorm:"size:1000"`
	ShortTextRemark  string  `json:"short_text_remark" gorm:"size:1000"`
}

// QuizResultReport stores the HTML report exactly as the examinee saw it.
// Best-effort companion of QuizResult, keyed by the same ID.
type QuizResultReport struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Report   string `json:"report" gorm:"type:text"`
	Origin   string `json:"origin"`
	Charset  string `json:"charset"`
	Language string `json:"language"`
}
