// Package surveys manages satisfaction surveys: audience targeting,
// answer state, rating tabulation with NPS, and CSV export.
package surveys

import (
	"strings"
	"time"
)

// Targeting modes. Exactly one applies per distribution.
const (
	TargetAll    = "all"
	TargetFilter = "filter"
	TargetManual = "manual"
)

// DefaultRewardStamps is granted for answering when a survey does not
// override it.
const DefaultRewardStamps = 3

// Survey defines one questionnaire: reward stamps granted on completion
// and an active window.
type Survey struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	RewardStamps int        `json:"reward_stamps"`
	IsActive     bool       `json:"is_active"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// WithStats decorates a survey with its audience counters for the
// dashboard list.
type WithStats struct {
	Survey
	TargetCount    int  `json:"targetCount"`
	AnsweredCount  int  `json:"answeredCount"`
	AnswerRate     int  `json:"answerRate"`
	ShowOnLiffOpen bool `json:"showOnLiffOpen"`
}

// Target is one per-(survey, patient) distribution row. A nil AnsweredAt
// means pending.
type Target struct {
	ID             string     `json:"id"`
	SurveyID       string     `json:"survey_id"`
	UserID         string     `json:"user_id"`
	ShowOnLiffOpen bool       `json:"show_on_liff_open"`
	AnsweredAt     *time.Time `json:"answered_at"`
	PostponedCount int        `json:"postponed_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TargetWithProfile joins patient display fields onto a target row.
type TargetWithProfile struct {
	Target
	DisplayName  *string `json:"display_name"`
	RealName     *string `json:"real_name"`
	TicketNumber *string `json:"ticket_number"`
}

// TargetStats summarizes answer progress for one survey's audience.
type TargetStats struct {
	TotalCount      int `json:"totalCount"`
	AnsweredCount   int `json:"answeredCount"`
	UnansweredCount int `json:"unansweredCount"`
	AnswerRate      int `json:"answerRate"`
}

// Answer holds the fixed three-question response: a 1-5 satisfaction
// rating, free text, and a 0-10 recommend score. At most one row exists
// per (survey, user).
type Answer struct {
	SurveyID    string    `json:"survey_id"`
	UserID      string    `json:"user_id"`
	Q1Rating    *int      `json:"q1_rating"`
	Q2Comment   *string   `json:"q2_comment"`
	Q3Recommend *int      `json:"q3_recommend"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnswerRow is one answer joined with the respondent's display name for
// results and CSV export.
type AnswerRow struct {
	Answer
	DisplayName *string `json:"display_name"`
}

// Comment is one free-text response in the results view.
type Comment struct {
	Q2Comment string    `json:"q2_comment"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Results is the tabulated view of one survey: the fixed five-bucket
// rating histogram, the Net Promoter Score, and per-respondent rows.
type Results struct {
	Q1Distribution map[int]int `json:"q1Distribution"`
	NPS            int         `json:"nps"`
	Comments       []Comment   `json:"comments"`
	List           []AnswerRow `json:"list"`
}

// CreateRequest is the body for creating a survey. The id is chosen by
// staff (e.g. "satisfaction_2026q1") and must be unique.
type CreateRequest struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	RewardStamps *int    `json:"reward_stamps"`
	IsActive     *bool   `json:"is_active"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
}

// Validate rejects a create without an id or title.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrSurveyIDRequired
	}
	if strings.TrimSpace(r.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// UpdateRequest is a partial survey edit. Nil fields stay untouched;
// empty string dates clear the window end.
type UpdateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	RewardStamps *int    `json:"reward_stamps"`
	IsActive     *bool   `json:"is_active"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
}

// FilterConditions narrows the filter targeting mode. MinStamps is
// multiplied by ten against the raw stamp count, mirroring the stamp-card
// unit the dashboard exposes.
type FilterConditions struct {
	LastVisitDays *int `json:"lastVisitDays"`
	MinStamps     *int `json:"minStamps"`
}

// DistributeRequest is the body for registering a survey's audience.
type DistributeRequest struct {
	SurveyID         string           `json:"surveyId"`
	TargetType       string           `json:"targetType"`
	FilterConditions FilterConditions `json:"filterConditions"`
	ManualUserIDs    []string         `json:"manualUserIds"`
	ShowOnLiffOpen   *bool            `json:"showOnLiffOpen"`
}

// Validate rejects malformed distribution requests before any write.
func (r *DistributeRequest) Validate() error {
	if strings.TrimSpace(r.SurveyID) == "" {
		return ErrSurveyIDRequired
	}
	switch r.TargetType {
	case TargetAll, TargetFilter, TargetManual:
	default:
		return ErrInvalidTargetType
	}
	if r.ShowOnLiffOpen == nil {
		return ErrLiffFlagRequired
	}
	return nil
}

// DistributeResult reports how many targets were registered.
type DistributeResult struct {
	TargetCount int `json:"targetCount"`
}

// Candidate is one profile matched by ticket-number search for manual
// target selection.
type Candidate struct {
	ID           string  `json:"id"`
	TicketNumber *string `json:"ticket_number"`
	RealName     *string `json:"real_name"`
	DisplayName  *string `json:"display_name"`
}
