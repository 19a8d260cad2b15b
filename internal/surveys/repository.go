package surveys

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists surveys, their distribution targets, and answers.
type Repository interface {
	ListSurveys(ctx context.Context) ([]Survey, error)
	GetSurvey(ctx context.Context, id string) (*Survey, error)
	CreateSurvey(ctx context.Context, s *Survey) (*Survey, error)
	UpdateSurvey(ctx context.Context, id string, update UpdateRequest) (*Survey, error)

	// UpsertTargets registers targets keyed by (survey_id, user_id).
	// An existing row only has its show_on_liff_open flag updated; its
	// answered_at is never disturbed.
	UpsertTargets(ctx context.Context, surveyID string, userIDs []string, showOnLiffOpen bool) error
	ListTargets(ctx context.Context, surveyID string) ([]TargetWithProfile, error)
	GetTarget(ctx context.Context, surveyID, userID string) (*Target, error)
	// ResetTarget deletes the answer row and nulls answered_at.
	ResetTarget(ctx context.Context, surveyID, userID string) error
	SetLiffFlag(ctx context.Context, surveyID string, show bool) (int, error)
	AllTargets(ctx context.Context) ([]Target, error)

	ListAnswers(ctx context.Context, surveyID string) ([]AnswerRow, error)
	// SaveAnswer inserts the answer row and stamps answered_at on the
	// target in one step.
	SaveAnswer(ctx context.Context, a Answer) error
	IncrementPostponed(ctx context.Context, surveyID, userID string) (int, error)
	// PendingTargets returns the targets for one patient that are flagged
	// for LIFF display and not yet answered.
	PendingTargets(ctx context.Context, userID string) ([]Target, error)
}

// InMemoryRepository is an in-memory Repository for tests and development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	surveys  map[string]*Survey
	targets  map[string]*TargetWithProfile
	answers  map[string]*AnswerRow
	profiles map[string]Candidate
}

// NewInMemoryRepository creates an empty in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		surveys:  make(map[string]*Survey),
		targets:  make(map[string]*TargetWithProfile),
		answers:  make(map[string]*AnswerRow),
		profiles: make(map[string]Candidate),
	}
}

func targetKey(surveyID, userID string) string { return surveyID + "|" + userID }

// AddProfileInfo seeds patient display fields used by target joins.
func (r *InMemoryRepository) AddProfileInfo(c Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[c.ID] = c
}

// AddAnswer seeds an answer row and marks the matching target answered.
func (r *InMemoryRepository) AddAnswer(a AnswerRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.answers[targetKey(a.SurveyID, a.UserID)] = &a
	if t, ok := r.targets[targetKey(a.SurveyID, a.UserID)]; ok {
		at := a.CreatedAt
		t.AnsweredAt = &at
	}
}

// ListSurveys returns surveys newest first.
func (r *InMemoryRepository) ListSurveys(ctx context.Context) ([]Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Survey, 0, len(r.surveys))
	for _, s := range r.surveys {
		out = append(out, *s)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// GetSurvey fetches one survey.
func (r *InMemoryRepository) GetSurvey(ctx context.Context, id string) (*Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surveys[id]
	if !ok {
		return nil, ErrSurveyNotFound
	}
	copied := *s
	return &copied, nil
}

// CreateSurvey inserts a survey, rejecting a reused id.
func (r *InMemoryRepository) CreateSurvey(ctx context.Context, s *Survey) (*Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.surveys[s.ID]; exists {
		return nil, ErrDuplicateSurveyID
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	copied := *s
	r.surveys[s.ID] = &copied
	return s, nil
}

// UpdateSurvey applies a partial edit.
func (r *InMemoryRepository) UpdateSurvey(ctx context.Context, id string, update UpdateRequest) (*Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[id]
	if !ok {
		return nil, ErrSurveyNotFound
	}
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Description != nil {
		if *update.Description == "" {
			s.Description = nil
		} else {
			s.Description = update.Description
		}
	}
	if update.RewardStamps != nil {
		s.RewardStamps = *update.RewardStamps
	}
	if update.IsActive != nil {
		s.IsActive = *update.IsActive
	}
	if update.StartDate != nil {
		s.StartDate = parseOptionalDate(*update.StartDate)
	}
	if update.EndDate != nil {
		s.EndDate = parseOptionalDate(*update.EndDate)
	}
	s.UpdatedAt = time.Now().UTC()
	copied := *s
	return &copied, nil
}

// UpsertTargets registers the audience, preserving answered_at on rows
// that already exist.
func (r *InMemoryRepository) UpsertTargets(ctx context.Context, surveyID string, userIDs []string, showOnLiffOpen bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, userID := range userIDs {
		key := targetKey(surveyID, userID)
		if t, ok := r.targets[key]; ok {
			t.ShowOnLiffOpen = showOnLiffOpen
			t.UpdatedAt = now
			continue
		}
		t := &TargetWithProfile{Target: Target{
			ID:             uuid.New().String(),
			SurveyID:       surveyID,
			UserID:         userID,
			ShowOnLiffOpen: showOnLiffOpen,
			CreatedAt:      now,
			UpdatedAt:      now,
		}}
		if p, ok := r.profiles[userID]; ok {
			t.DisplayName = p.DisplayName
			t.RealName = p.RealName
			t.TicketNumber = p.TicketNumber
		}
		r.targets[key] = t
	}
	return nil
}

// ListTargets returns one survey's targets newest first.
func (r *InMemoryRepository) ListTargets(ctx context.Context, surveyID string) ([]TargetWithProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TargetWithProfile, 0)
	for _, t := range r.targets {
		if t.SurveyID == surveyID {
			out = append(out, *t)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// GetTarget fetches one (survey, user) row.
func (r *InMemoryRepository) GetTarget(ctx context.Context, surveyID, userID string) (*Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[targetKey(surveyID, userID)]
	if !ok {
		return nil, ErrTargetNotFound
	}
	copied := t.Target
	return &copied, nil
}

// ResetTarget deletes the answer row and nulls answered_at.
func (r *InMemoryRepository) ResetTarget(ctx context.Context, surveyID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := targetKey(surveyID, userID)
	t, ok := r.targets[key]
	if !ok {
		return ErrTargetNotFound
	}
	delete(r.answers, key)
	t.AnsweredAt = nil
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetLiffFlag flips show_on_liff_open for every target of one survey.
func (r *InMemoryRepository) SetLiffFlag(ctx context.Context, surveyID string, show bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	now := time.Now().UTC()
	for _, t := range r.targets {
		if t.SurveyID == surveyID {
			t.ShowOnLiffOpen = show
			t.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

// AllTargets returns every target row, for per-survey stats.
func (r *InMemoryRepository) AllTargets(ctx context.Context) ([]Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t.Target)
	}
	return out, nil
}

// ListAnswers returns one survey's answers newest first, joined with the
// respondent's display name.
func (r *InMemoryRepository) ListAnswers(ctx context.Context, surveyID string) ([]AnswerRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AnswerRow, 0)
	for _, a := range r.answers {
		if a.SurveyID != surveyID {
			continue
		}
		row := *a
		if row.DisplayName == nil {
			if p, ok := r.profiles[a.UserID]; ok {
				row.DisplayName = p.DisplayName
			}
		}
		out = append(out, row)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// SaveAnswer inserts the answer row and stamps answered_at on the target.
func (r *InMemoryRepository) SaveAnswer(ctx context.Context, a Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := targetKey(a.SurveyID, a.UserID)
	t, ok := r.targets[key]
	if !ok {
		return ErrTargetNotFound
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.answers[key] = &AnswerRow{Answer: a}
	at := a.CreatedAt
	t.AnsweredAt = &at
	t.UpdatedAt = at
	return nil
}

// IncrementPostponed bumps the postpone counter and returns the new value.
func (r *InMemoryRepository) IncrementPostponed(ctx context.Context, surveyID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[targetKey(surveyID, userID)]
	if !ok {
		return 0, ErrTargetNotFound
	}
	t.PostponedCount++
	t.UpdatedAt = time.Now().UTC()
	return t.PostponedCount, nil
}

// PendingTargets returns LIFF-flagged unanswered targets for one patient.
func (r *InMemoryRepository) PendingTargets(ctx context.Context, userID string) ([]Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Target
	for _, t := range r.targets {
		if t.UserID == userID && t.ShowOnLiffOpen && t.AnsweredAt == nil {
			out = append(out, t.Target)
		}
	}
	return out, nil
}

func parseOptionalDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	return nil
}
