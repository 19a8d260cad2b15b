package surveys

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakabadc/clinic-line-admin/internal/profiles"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

func newTestService() (*Service, *InMemoryRepository, *profiles.InMemoryRepository) {
	repo := NewInMemoryRepository()
	profileRepo := profiles.NewInMemoryRepository()
	svc := NewService(repo, profileRepo, logging.NewWithWriter("error", io.Discard))
	return svc, repo, profileRepo
}

func seedSurvey(t *testing.T, svc *Service, id string) *Survey {
	t.Helper()
	sv, err := svc.Create(context.Background(), CreateRequest{ID: id, Title: "満足度調査"})
	require.NoError(t, err)
	return sv
}

func boolPtr(v bool) *bool { return &v }

func TestCreateDefaults(t *testing.T) {
	svc, _, _ := newTestService()

	sv, err := svc.Create(context.Background(), CreateRequest{ID: "sv-2026-05", Title: "満足度調査"})
	require.NoError(t, err)

	assert.Equal(t, "sv-2026-05", sv.ID)
	assert.Equal(t, DefaultRewardStamps, sv.RewardStamps)
	assert.True(t, sv.IsActive)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Title: "タイトルのみ"})
	assert.ErrorIs(t, err, ErrSurveyIDRequired)

	_, err = svc.Create(ctx, CreateRequest{ID: "sv-1"})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestCreateDuplicateIDConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")

	_, err := svc.Create(ctx, CreateRequest{ID: "sv-1", Title: "別のタイトル"})
	assert.ErrorIs(t, err, ErrDuplicateSurveyID)

	// The original survey is untouched.
	sv, err := svc.Get(ctx, "sv-1")
	require.NoError(t, err)
	assert.Equal(t, "満足度調査", sv.Title)
}

func TestUpdatePartial(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")

	title := "改定版"
	active := false
	sv, err := svc.Update(ctx, "sv-1", UpdateRequest{Title: &title, IsActive: &active})
	require.NoError(t, err)

	assert.Equal(t, "改定版", sv.Title)
	assert.False(t, sv.IsActive)
	assert.Equal(t, DefaultRewardStamps, sv.RewardStamps)

	_, err = svc.Update(ctx, "missing", UpdateRequest{Title: &title})
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestDistributeAll(t *testing.T) {
	svc, repo, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	profileRepo.Add(&profiles.Profile{ID: "p1"})
	profileRepo.Add(&profiles.Profile{ID: "p2"})
	profileRepo.Add(&profiles.Profile{ID: "p3"})

	result, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetAll, ShowOnLiffOpen: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TargetCount)

	targets, err := repo.ListTargets(ctx, "sv-1")
	require.NoError(t, err)
	assert.Len(t, targets, 3)
	for _, target := range targets {
		assert.True(t, target.ShowOnLiffOpen)
	}
}

func TestDistributeFilterUsesStampCardUnit(t *testing.T) {
	svc, repo, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	profileRepo.Add(&profiles.Profile{ID: "two-cards", StampCount: 20})
	profileRepo.Add(&profiles.Profile{ID: "almost", StampCount: 19})

	// minStamps counts stamp cards of ten, so 2 means 20 raw stamps.
	result, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID:         "sv-1",
		TargetType:       TargetFilter,
		FilterConditions: FilterConditions{MinStamps: intPtr(2)},
		ShowOnLiffOpen:   boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TargetCount)

	_, err = repo.GetTarget(ctx, "sv-1", "two-cards")
	assert.NoError(t, err)
	_, err = repo.GetTarget(ctx, "sv-1", "almost")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestDistributeFilterLastVisitDays(t *testing.T) {
	svc, repo, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")

	recent := time.Now().AddDate(0, 0, -10)
	stale := time.Now().AddDate(0, 0, -90)
	profileRepo.Add(&profiles.Profile{ID: "recent", LastVisitDate: &recent})
	profileRepo.Add(&profiles.Profile{ID: "stale", LastVisitDate: &stale})
	profileRepo.Add(&profiles.Profile{ID: "never"})

	result, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID:         "sv-1",
		TargetType:       TargetFilter,
		FilterConditions: FilterConditions{LastVisitDays: intPtr(30)},
		ShowOnLiffOpen:   boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TargetCount)

	_, err = repo.GetTarget(ctx, "sv-1", "recent")
	assert.NoError(t, err)
}

func TestDistributeManualAndZeroTargets(t *testing.T) {
	svc, repo, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	profileRepo.Add(&profiles.Profile{ID: "p1"})

	result, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetManual,
		ManualUserIDs:  []string{"p1"},
		ShowOnLiffOpen: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TargetCount)

	result, err = svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetManual,
		ShowOnLiffOpen: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TargetCount)

	targets, err := repo.ListTargets(ctx, "sv-1")
	require.NoError(t, err)
	assert.Len(t, targets, 1)
}

func TestDistributeValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")

	_, err := svc.Distribute(ctx, DistributeRequest{TargetType: TargetAll, ShowOnLiffOpen: boolPtr(true)})
	assert.ErrorIs(t, err, ErrSurveyIDRequired)

	_, err = svc.Distribute(ctx, DistributeRequest{SurveyID: "sv-1", TargetType: "everyone", ShowOnLiffOpen: boolPtr(true)})
	assert.ErrorIs(t, err, ErrInvalidTargetType)

	_, err = svc.Distribute(ctx, DistributeRequest{SurveyID: "sv-1", TargetType: TargetAll})
	assert.ErrorIs(t, err, ErrLiffFlagRequired)

	_, err = svc.Distribute(ctx, DistributeRequest{SurveyID: "missing", TargetType: TargetAll, ShowOnLiffOpen: boolPtr(true)})
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestRedistributePreservesAnswers(t *testing.T) {
	svc, repo, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	profileRepo.Add(&profiles.Profile{ID: "p1"})

	_, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetAll, ShowOnLiffOpen: boolPtr(true),
	})
	require.NoError(t, err)
	repo.AddAnswer(AnswerRow{Answer: Answer{SurveyID: "sv-1", UserID: "p1", Q1Rating: intPtr(5)}})

	_, err = svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetAll, ShowOnLiffOpen: boolPtr(false),
	})
	require.NoError(t, err)

	target, err := repo.GetTarget(ctx, "sv-1", "p1")
	require.NoError(t, err)
	assert.False(t, target.ShowOnLiffOpen)
	assert.NotNil(t, target.AnsweredAt)
}

func TestResetAnswer(t *testing.T) {
	svc, repo, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	profileRepo.Add(&profiles.Profile{ID: "p1"})

	_, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetAll, ShowOnLiffOpen: boolPtr(true),
	})
	require.NoError(t, err)
	repo.AddAnswer(AnswerRow{Answer: Answer{SurveyID: "sv-1", UserID: "p1", Q1Rating: intPtr(4)}})

	require.NoError(t, svc.ResetAnswer(ctx, "sv-1", "p1"))

	target, err := repo.GetTarget(ctx, "sv-1", "p1")
	require.NoError(t, err)
	assert.Nil(t, target.AnsweredAt)

	answers, err := repo.ListAnswers(ctx, "sv-1")
	require.NoError(t, err)
	assert.Empty(t, answers)

	// Second reset is a conflict, not a no-op.
	assert.ErrorIs(t, svc.ResetAnswer(ctx, "sv-1", "p1"), ErrAlreadyPending)

	assert.ErrorIs(t, svc.ResetAnswer(ctx, "sv-1", "nobody"), ErrTargetNotFound)
}

func TestSetLiffFlagReportsCount(t *testing.T) {
	svc, _, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	profileRepo.Add(&profiles.Profile{ID: "p1"})
	profileRepo.Add(&profiles.Profile{ID: "p2"})

	_, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetAll, ShowOnLiffOpen: boolPtr(false),
	})
	require.NoError(t, err)

	count, err := svc.SetLiffFlag(ctx, "sv-1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = svc.SetLiffFlag(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestListIncludesStats(t *testing.T) {
	svc, repo, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	profileRepo.Add(&profiles.Profile{ID: "p1"})
	profileRepo.Add(&profiles.Profile{ID: "p2"})
	profileRepo.Add(&profiles.Profile{ID: "p3"})

	_, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetAll, ShowOnLiffOpen: boolPtr(true),
	})
	require.NoError(t, err)
	repo.AddAnswer(AnswerRow{Answer: Answer{SurveyID: "sv-1", UserID: "p1"}})

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].TargetCount)
	assert.Equal(t, 1, list[0].AnsweredCount)
	assert.Equal(t, 33, list[0].AnswerRate)
	assert.True(t, list[0].ShowOnLiffOpen)
}

func TestTargetsStats(t *testing.T) {
	svc, repo, profileRepo := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	name := "田中"
	profileRepo.Add(&profiles.Profile{ID: "p1", DisplayName: &name})
	profileRepo.Add(&profiles.Profile{ID: "p2"})

	_, err := svc.Distribute(ctx, DistributeRequest{
		SurveyID: "sv-1", TargetType: TargetAll, ShowOnLiffOpen: boolPtr(true),
	})
	require.NoError(t, err)
	repo.AddAnswer(AnswerRow{Answer: Answer{SurveyID: "sv-1", UserID: "p1"}})

	targets, stats, err := svc.Targets(ctx, "sv-1")
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.AnsweredCount)
	assert.Equal(t, 1, stats.UnansweredCount)
	assert.Equal(t, 50, stats.AnswerRate)
}

func TestResultsCSV(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	repo.AddAnswer(AnswerRow{
		Answer: Answer{
			SurveyID: "sv-1", UserID: "U1",
			Q1Rating: intPtr(5), Q2Comment: strPtr("良い"), Q3Recommend: intPtr(9),
		},
		DisplayName: strPtr("田中"),
	})

	name, data, err := svc.ResultsCSV(ctx, "sv-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "survey_results_sv-1_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))

	body := string(data)
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"))
	assert.Contains(t, body, "回答日時,ユーザーID,表示名,Q1満足度,Q2自由記述,Q3推奨度")
	assert.Contains(t, body, "U1,田中,5,良い,9")
}

func TestResultsTabulation(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	seedSurvey(t, svc, "sv-1")
	repo.AddAnswer(AnswerRow{Answer: Answer{SurveyID: "sv-1", UserID: "U1", Q1Rating: intPtr(5), Q3Recommend: intPtr(10)}})
	repo.AddAnswer(AnswerRow{Answer: Answer{SurveyID: "sv-1", UserID: "U2", Q1Rating: intPtr(2), Q3Recommend: intPtr(2)}})

	results, err := svc.Results(ctx, "sv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, results.Q1Distribution[5])
	assert.Equal(t, 1, results.Q1Distribution[2])
	assert.Equal(t, 0, results.NPS)

	_, err = svc.Results(ctx, "missing")
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestCandidatesSearchByTicket(t *testing.T) {
	svc, _, profileRepo := newTestService()
	ctx := context.Background()
	ticket1 := "A-1001"
	ticket2 := "B-2002"
	profileRepo.Add(&profiles.Profile{ID: "p1", TicketNumber: &ticket1})
	profileRepo.Add(&profiles.Profile{ID: "p2", TicketNumber: &ticket2})
	profileRepo.Add(&profiles.Profile{ID: "p3"})

	list, err := svc.Candidates(ctx, "a-10")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)

	all, err := svc.Candidates(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
