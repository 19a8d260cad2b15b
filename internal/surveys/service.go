package surveys

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wakabadc/clinic-line-admin/pkg/logging"
	"github.com/wakabadc/clinic-line-admin/internal/profiles"
)

// CandidateSearchLimit caps the manual-targeting patient search.
const CandidateSearchLimit = 20

// stampCardUnit converts the admin UI's stamp-card count into raw stamps
// when filtering by minimum stamps. One card holds ten stamps.
const stampCardUnit = 10

// Service implements survey administration: lifecycle, distribution,
// answer management, and tabulation.
type Service struct {
	repo     Repository
	profiles profiles.Repository
	logger   *logging.Logger
	now      func() time.Time
}

// NewService creates a survey service.
func NewService(repo Repository, profileRepo profiles.Repository, logger *logging.Logger) *Service {
	return &Service{
		repo:     repo,
		profiles: profileRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns every survey with its distribution stats attached.
func (s *Service) List(ctx context.Context) ([]WithStats, error) {
	list, err := s.repo.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}
	targets, err := s.repo.AllTargets(ctx)
	if err != nil {
		return nil, err
	}

	type tally struct {
		total    int
		answered int
		liffOpen bool
	}
	byID := make(map[string]*tally, len(list))
	for _, t := range targets {
		entry := byID[t.SurveyID]
		if entry == nil {
			entry = &tally{}
			byID[t.SurveyID] = entry
		}
		entry.total++
		if t.AnsweredAt != nil {
			entry.answered++
		}
		if t.ShowOnLiffOpen {
			entry.liffOpen = true
		}
	}

	out := make([]WithStats, 0, len(list))
	for _, sv := range list {
		ws := WithStats{Survey: sv}
		if entry := byID[sv.ID]; entry != nil {
			ws.TargetCount = entry.total
			ws.AnsweredCount = entry.answered
			ws.AnswerRate = percentage(entry.answered, entry.total)
			ws.ShowOnLiffOpen = entry.liffOpen
		}
		out = append(out, ws)
	}
	return out, nil
}

// Get fetches one survey.
func (s *Service) Get(ctx context.Context, id string) (*Survey, error) {
	return s.repo.GetSurvey(ctx, id)
}

// Create registers a survey under a caller-chosen id. Reusing an id is a
// conflict, not an overwrite.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Survey, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sv := &Survey{
		ID:           strings.TrimSpace(req.ID),
		Title:        strings.TrimSpace(req.Title),
		Description:  normalizeDescription(req.Description),
		RewardStamps: DefaultRewardStamps,
		IsActive:     true,
	}
	if req.RewardStamps != nil {
		sv.RewardStamps = *req.RewardStamps
	}
	if req.IsActive != nil {
		sv.IsActive = *req.IsActive
	}
	if req.StartDate != nil {
		sv.StartDate = parseOptionalDate(*req.StartDate)
	}
	if req.EndDate != nil {
		sv.EndDate = parseOptionalDate(*req.EndDate)
	}
	created, err := s.repo.CreateSurvey(ctx, sv)
	if err != nil {
		return nil, err
	}
	s.logger.Info("survey created", "survey_id", created.ID, "title", created.Title)
	return created, nil
}

// Update applies a partial edit.
func (s *Service) Update(ctx context.Context, id string, update UpdateRequest) (*Survey, error) {
	return s.repo.UpdateSurvey(ctx, id, update)
}

// Distribute resolves the requested audience and registers it as targets.
// Redistribution refreshes the LIFF flag on existing targets without
// touching their answers.
func (s *Service) Distribute(ctx context.Context, req DistributeRequest) (*DistributeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetSurvey(ctx, req.SurveyID); err != nil {
		return nil, err
	}

	userIDs, err := s.resolveAudience(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return &DistributeResult{TargetCount: 0}, nil
	}
	if err := s.repo.UpsertTargets(ctx, req.SurveyID, userIDs, *req.ShowOnLiffOpen); err != nil {
		return nil, err
	}
	s.logger.Info("survey distributed",
		"survey_id", req.SurveyID, "target_type", req.TargetType, "target_count", len(userIDs))
	return &DistributeResult{TargetCount: len(userIDs)}, nil
}

func (s *Service) resolveAudience(ctx context.Context, req DistributeRequest) ([]string, error) {
	if req.TargetType == TargetManual {
		return req.ManualUserIDs, nil
	}
	list, err := s.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range list {
		if req.TargetType == TargetFilter && !matchesFilter(p, req.FilterConditions, s.now()) {
			continue
		}
		out = append(out, p.ID)
	}
	return out, nil
}

func matchesFilter(p *profiles.Profile, fc FilterConditions, now time.Time) bool {
	if fc.LastVisitDays != nil {
		if p.LastVisitDate == nil {
			return false
		}
		since := now.AddDate(0, 0, -*fc.LastVisitDays)
		if p.LastVisitDate.Before(since) {
			return false
		}
	}
	if fc.MinStamps != nil && p.StampCount < *fc.MinStamps*stampCardUnit {
		return false
	}
	return true
}

// Targets returns one survey's targets with answer stats.
func (s *Service) Targets(ctx context.Context, surveyID string) ([]TargetWithProfile, *TargetStats, error) {
	if _, err := s.repo.GetSurvey(ctx, surveyID); err != nil {
		return nil, nil, err
	}
	list, err := s.repo.ListTargets(ctx, surveyID)
	if err != nil {
		return nil, nil, err
	}
	stats := &TargetStats{TotalCount: len(list)}
	for _, t := range list {
		if t.AnsweredAt != nil {
			stats.AnsweredCount++
		}
	}
	stats.UnansweredCount = stats.TotalCount - stats.AnsweredCount
	stats.AnswerRate = percentage(stats.AnsweredCount, stats.TotalCount)
	return list, stats, nil
}

// ResetAnswer returns an answered target to pending so the patient can
// answer again. A target that is already pending is a conflict.
func (s *Service) ResetAnswer(ctx context.Context, surveyID, userID string) error {
	target, err := s.repo.GetTarget(ctx, surveyID, userID)
	if err != nil {
		return err
	}
	if target.AnsweredAt == nil {
		return ErrAlreadyPending
	}
	if err := s.repo.ResetTarget(ctx, surveyID, userID); err != nil {
		return err
	}
	s.logger.Info("survey answer reset", "survey_id", surveyID, "user_id", userID)
	return nil
}

// SetLiffFlag flips show_on_liff_open for the entire audience and reports
// how many rows changed.
func (s *Service) SetLiffFlag(ctx context.Context, surveyID string, show bool) (int, error) {
	if _, err := s.repo.GetSurvey(ctx, surveyID); err != nil {
		return 0, err
	}
	return s.repo.SetLiffFlag(ctx, surveyID, show)
}

// Results tabulates one survey's answers.
func (s *Service) Results(ctx context.Context, surveyID string) (*Results, error) {
	if _, err := s.repo.GetSurvey(ctx, surveyID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAnswers(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return Tabulate(rows), nil
}

var csvHeader = []string{"回答日時", "ユーザーID", "表示名", "Q1満足度", "Q2自由記述", "Q3推奨度"}

// ResultsCSV renders one survey's answers as a UTF-8 CSV with a BOM so
// spreadsheet tools pick the right encoding. It returns the suggested
// download filename alongside the payload.
func (s *Service) ResultsCSV(ctx context.Context, surveyID string) (string, []byte, error) {
	if _, err := s.repo.GetSurvey(ctx, surveyID); err != nil {
		return "", nil, err
	}
	rows, err := s.repo.ListAnswers(ctx, surveyID)
	if err != nil {
		return "", nil, err
	}

	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		loc = time.UTC
	}
	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", nil, fmt.Errorf("surveys: csv: %w", err)
	}
	for _, a := range rows {
		record := []string{
			a.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			a.UserID,
			stringOrEmpty(a.DisplayName),
			intOrEmpty(a.Q1Rating),
			stringOrEmpty(a.Q2Comment),
			intOrEmpty(a.Q3Recommend),
		}
		if err := w.Write(record); err != nil {
			return "", nil, fmt.Errorf("surveys: csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("surveys: csv: %w", err)
	}

	name := fmt.Sprintf("survey_results_%s_%s.csv", surveyID, s.now().In(loc).Format("2006-01-02"))
	return name, buf.Bytes(), nil
}

// Candidates searches patients by ticket number for manual targeting.
func (s *Service) Candidates(ctx context.Context, search string) ([]Candidate, error) {
	list, err := s.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]Candidate, 0)
	for _, p := range list {
		if search != "" {
			if p.TicketNumber == nil || !strings.Contains(strings.ToLower(*p.TicketNumber), search) {
				continue
			}
		}
		out = append(out, Candidate{
			ID:           p.ID,
			TicketNumber: p.TicketNumber,
			RealName:     p.RealName,
			DisplayName:  p.DisplayName,
		})
		if len(out) == CandidateSearchLimit {
			break
		}
	}
	return out, nil
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
