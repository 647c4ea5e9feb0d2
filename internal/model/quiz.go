package model

import "time"

// QuizStatePublished is the only state in which students may submit results.
const QuizStatePublished = 10

// Quiz is the stored definition of a quiz (metadata only; question content is
// delivered by generated client-side scripts, not by this server).
type Quiz struct {
	ID           uint      `gorm:"primarykey;column:qz_id" json:"id"`
	QuizName     string    `json:"name" gorm:"not null;uniqueIndex"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Argument     string    `json:"argument"`
	Season       string    `json:"season"`
	NumQuestions int       `json:"num_questions"`
	State        int       `json:"state" gorm:"index"`
	Link         string    `json:"link"`
	Properties   string    `json:"properties,omitempty" gorm:"type:text"` // JSON, e.g. {"Duration":...}
	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
	DateModified time.Time `json:"date_modified" gorm:"autoUpdateTime"`
}
