package surveys

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PendingSurvey is one survey awaiting a patient's answer in the LIFF app.
type PendingSurvey struct {
	Survey
	PostponedCount int `json:"postponed_count"`
}

// SubmitAnswerRequest is a patient's answer from the LIFF app.
type SubmitAnswerRequest struct {
	UserID      string  `json:"userId"`
	Q1Rating    *int    `json:"q1Rating"`
	Q2Comment   *string `json:"q2Comment"`
	Q3Recommend *int    `json:"q3Recommend"`
}

// Validate rejects scores outside the question scales. Q1 is a 1-5
// satisfaction rating, Q3 the 0-10 recommend scale; both may be skipped.
func (r *SubmitAnswerRequest) Validate() error {
	if r.Q1Rating != nil && (*r.Q1Rating < 1 || *r.Q1Rating > 5) {
		return ErrInvalidRating
	}
	if r.Q3Recommend != nil && (*r.Q3Recommend < 0 || *r.Q3Recommend > 10) {
		return ErrInvalidRating
	}
	return nil
}

// Pending returns the active surveys one patient should see on LIFF open.
func (s *Service) Pending(ctx context.Context, userID string) ([]PendingSurvey, error) {
	targets, err := s.repo.PendingTargets(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]PendingSurvey, 0, len(targets))
	for _, t := range targets {
		sv, err := s.repo.GetSurvey(ctx, t.SurveyID)
		if err != nil {
			if errors.Is(err, ErrSurveyNotFound) {
				continue
			}
			return nil, err
		}
		if !s.surveyOpen(sv) {
			continue
		}
		out = append(out, PendingSurvey{Survey: *sv, PostponedCount: t.PostponedCount})
	}
	return out, nil
}

// SubmitAnswer records a patient's answer, marks the target answered, and
// pays out the survey's reward stamps. A second answer is a conflict.
func (s *Service) SubmitAnswer(ctx context.Context, surveyID string, req SubmitAnswerRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	sv, err := s.repo.GetSurvey(ctx, surveyID)
	if err != nil {
		return err
	}
	if !s.surveyOpen(sv) {
		return ErrSurveyClosed
	}
	target, err := s.repo.GetTarget(ctx, surveyID, req.UserID)
	if err != nil {
		return err
	}
	if target.AnsweredAt != nil {
		return ErrAlreadyAnswered
	}

	answer := Answer{
		SurveyID:    surveyID,
		UserID:      req.UserID,
		Q1Rating:    req.Q1Rating,
		Q2Comment:   req.Q2Comment,
		Q3Recommend: req.Q3Recommend,
	}
	if err := s.repo.SaveAnswer(ctx, answer); err != nil {
		return err
	}

	if sv.RewardStamps > 0 {
		if _, err := s.profiles.AdjustStampCount(ctx, req.UserID, sv.RewardStamps); err != nil {
			// The answer is already recorded; surface the payout failure
			// in the logs rather than rolling the answer back.
			s.logger.Error("survey reward payout failed",
				"survey_id", surveyID, "user_id", req.UserID, "error", err)
		}
	}
	s.logger.Info("survey answered", "survey_id", surveyID, "user_id", req.UserID)
	return nil
}

// Postpone bumps the patient's postpone counter for one survey.
func (s *Service) Postpone(ctx context.Context, surveyID, userID string) (int, error) {
	if _, err := s.repo.GetSurvey(ctx, surveyID); err != nil {
		return 0, err
	}
	return s.repo.IncrementPostponed(ctx, surveyID, userID)
}

func (s *Service) surveyOpen(sv *Survey) bool {
	if !sv.IsActive {
		return false
	}
	now := s.now()
	if sv.StartDate != nil && now.Before(*sv.StartDate) {
		return false
	}
	if sv.EndDate != nil && now.After(*sv.EndDate) {
		return false
	}
	return true
}

// Pending handles GET /api/liff/surveys.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	list, err := h.service.Pending(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"surveys": list})
}

// SubmitAnswer handles POST /api/liff/surveys/{id}/answers.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	if err := h.service.SubmitAnswer(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		h.respondLiffError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Postpone handles POST /api/liff/surveys/{id}/postpone.
func (h *Handler) Postpone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	count, err := h.service.Postpone(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		h.respondLiffError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "postponedCount": count})
}

func (h *Handler) respondLiffError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRating):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrAlreadyAnswered), errors.Is(err, ErrSurveyClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.respondError(w, err)
	}
}
