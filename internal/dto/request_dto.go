package dto

import "encoding/json"

type RegistrationRequest struct {
	Name        string            `json:"name"`
	Email       string            `json:"email" binding:"required"`
	Password    string            `json:"password" binding:"required"`
	OtherFields []PersonFieldItem `json:"otherFields,omitempty"`
}

type PersonFieldItem struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
	Param string `json:"Param"`
}

type LoginRequest struct {
	Login  string `json:"login" binding:"required"`
	Pwd    string `json:"pwd" binding:"required"`
	Search string `json:"search,omitempty"` // raw URL query string of the quiz page, checked against Info params
}

type LogoutRequest struct {
	QuizID    uint  `json:"quizId,omitempty"`
	SessionID *uint `json:"sessionId,omitempty"`
}

// SessionUpdateRequest is the high-frequency fire-and-forget update enqueued on
// every answered question.
type SessionUpdateRequest struct {
	SessionID   uint               `json:"sessionId" binding:"required"`
	SessionData *SessionDataUpdate `json:"sessionData" binding:"required"`
	// UserIdentity is stamped from the caller's token, never from the body.
	UserIdentity string `json:"-"`
}

// SessionDataUpdate carries the partial state merged into the stored blob. The
// values stay raw JSON: the server treats question content as opaque.
type SessionDataUpdate struct {
	QuestionIndex       int             `json:"questionIndex"`
	Question            json.RawMessage `json:"question"`
	Time                json.RawMessage `json:"time"`
	UpdateTime          json.RawMessage `json:"updateTime,omitempty"`
	ShadowDeltaTime     json.RawMessage `json:"shadowDeltaTime,omitempty"`
	CurrentQuestionPage json.RawMessage `json:"currentQuestionPage"`
}

// SessionUpdateFirstRequest overwrites (or clears) the whole session blob
// synchronously, before the quiz starts.
type SessionUpdateFirstRequest struct {
	SessionID   uint            `json:"sessionId" binding:"required"`
	SessionData json.RawMessage `json:"sessionData,omitempty"`
}

// SubmitResultRequest is the completed quiz sent by the client.
type SubmitResultRequest struct {
	Options       QuizOptions         `json:"options" binding:"required"`
	CurrentUser   SubmittedUser       `json:"currentUser" binding:"required"`
	DateCompleted string              `json:"dateCompletedStr"`
	Mark          float64             `json:"mark"`
	Points        *float64            `json:"points,omitempty"`
	Time          int                 `json:"time"`
	NRight        int                 `json:"nRight"`
	NWrong        int                 `json:"nWrong"`
	NNotValuated  *int                `json:"nNotValuated,omitempty"`
	NNotAnswered  *int                `json:"nNotAnswered,omitempty"`
	NumOfRetake   int                 `json:"numOfRetake"`
	Questions     []SubmittedQuestion `json:"questions"`
	Report        *ReportPayload      `json:"report,omitempty"`
}

type QuizOptions struct {
	Name          string `json:"name" binding:"required"`
	Title         string `json:"title"`
	ID            uint   `json:"id"`
	NumQuestions  int    `json:"numOfQuestions"`
	MaxMark       float64 `json:"maxmark"`
	MinMark       float64 `json:"minmark"`
	RoundMark     int    `json:"roundmark"`
	MaxTime       int    `json:"maxtime"`
	DecimalPlaces *int   `json:"numDecimalPlacesForPoints,omitempty"`
	HtmlCharset   string `json:"htmlCharset,omitempty"`
	HtmlLanguage  string `json:"htmlLanguage,omitempty"`
}

type SubmittedUser struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"required"`
}

type SubmittedQuestion struct {
	Num               *int              `json:"num,omitempty"` // older clients omit it; position is the fallback
	TypeOfQuestion    int               `json:"typeOfQuestion"`
	Weight            int               `json:"weight"`
	ShortTextQuestion string            `json:"shortTextQuestion"`
	Valid             int               `json:"valid"`
	Score             float64           `json:"nScore"`
	MaxScore          float64           `json:"maxScore"`
	MinScore          float64           `json:"minScore"`
	Points            *float64          `json:"nPoints,omitempty"`
	Answers           []SubmittedAnswer `json:"answers"`
}

type SubmittedAnswer struct {
	Choice          string  `json:"choice"`
	Valuation       string  `json:"valuation"`
	IsGuess         bool    `json:"isGuess"`
	Score           float64 `json:"score"`
	AdditionalText  string  `json:"additionalText"`
	ShortTextAnswer string  `json:"shortTextAnswer"`
	ShortTextRemark string  `json:"shortTextRemark"`
}

type ReportPayload struct {
	Report string `json:"report"`
	Origin string `json:"origin"`
}

// QuestionReviewUpdate edits one stored question row during teacher review.
// Only the fields present are updated.
type QuestionReviewUpdate struct {
	Id       uint     `json:"Id" binding:"required"`
	Valid    *int     `json:"Valid,omitempty"`
	Score    *float64 `json:"Score,omitempty"`
	MaxScore *float64 `json:"MaxScore,omitempty"`
	MinScore *float64 `json:"MinScore,omitempty"`
	Points   *float64 `json:"Points,omitempty"`
	Feedback *string  `json:"Feedback,omitempty"`
}

type EditResultDetailsRequest struct {
	Results []QuestionReviewUpdate `json:"results" binding:"required"`
}

// ResultReviewUpdate edits the header row after teacher review.
type ResultReviewUpdate struct {
	Id                   uint     `json:"Id" binding:"required"`
	ReviewMark           *float64 `json:"ReviewMark,omitempty"`
	ReviewPoints         *float64 `json:"ReviewPoints,omitempty"`
	RightQuestsNum       *int     `json:"RightQuestsNum,omitempty"`
	WrongQuestsNum       *int     `json:"WrongQuestsNum,omitempty"`
	NotAnsweredQuestsNum *int     `json:"NotAnsweredQuestsNum,omitempty"`
	NotValuatedQuestsNum *int     `json:"NotValuatedQuestsNum,omitempty"`
}

type RemoveResultsRequest struct {
	Results []RemoveResultItem `json:"results" binding:"required"`
}

type RemoveResultItem struct {
	ResultID uint `json:"resultId" binding:"required"`
}

// RetrieveResultRequest re-creates a result row from an archived report.
type RetrieveResultRequest struct {
	QuizName   string  `json:"quizName" binding:"required"`
	IdentityID string  `json:"identityId" binding:"required"`
	Date       string  `json:"date"`
	Points     float64 `json:"points"`
	Report     string  `json:"report"`
}

type ReportRequest struct {
	ID       uint   `json:"ID" binding:"required"`
	Report   string `json:"report"`
	Origin   string `json:"origin"`
	Charset  string `json:"charset"`
	Language string `json:"language"`
}

// ResultSearchParams is bound from the query string of the results search.
type ResultSearchParams struct {
	Title    string `form:"title"`
	User     string `form:"user"`
	FromDate string `form:"fromDate"`
	ToDate   string `form:"toDate"`
	FromMark *float64 `form:"fromMark"`
	ToMark   *float64 `form:"toMark"`
	Top      int    `form:"top"`
	Last     int    `form:"last"` // only results received in the last N minutes
	IncDup   *int   `form:"incDup"`
	OrderBy  string `form:"orderby"`
}
