package broadcast

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/wakabadc/clinic-line-admin/internal/line"
	"github.com/wakabadc/clinic-line-admin/internal/profiles"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

type fakePusher struct {
	sent   []string
	texts  map[string]string
	failOn map[string]error
}

func (f *fakePusher) Push(ctx context.Context, to, text string) error {
	if err, ok := f.failOn[to]; ok {
		return err
	}
	f.sent = append(f.sent, to)
	if f.texts == nil {
		f.texts = make(map[string]string)
	}
	f.texts[to] = text
	return nil
}

// middayClock keeps runs safely outside the default quiet-hours window.
func middayClock() func() time.Time {
	jst := time.FixedZone("JST", 9*3600)
	at := time.Date(2026, 5, 10, 13, 0, 0, 0, jst)
	return func() time.Time { return at }
}

func newTestDispatcher(repo profiles.Repository, pusher Pusher) (*Dispatcher, *InMemoryLogRepository) {
	logs := NewInMemoryLogRepository()
	d := NewDispatcher(repo, logs, pusher, nil, nil,
		logging.NewWithWriter("error", io.Discard), time.Millisecond)
	d.now = middayClock()
	return d, logs
}

func seedFriend(repo *profiles.InMemoryRepository, id, name string, stamps int) {
	yes := true
	repo.Add(&profiles.Profile{
		ID:           id,
		LineUserID:   "L" + id,
		DisplayName:  &name,
		StampCount:   stamps,
		IsLineFriend: &yes,
	})
}

func TestSendZeroRecipientsWritesLogWithoutPushing(t *testing.T) {
	repo := profiles.NewInMemoryRepository()
	pusher := &fakePusher{}
	d, logs := newTestDispatcher(repo, pusher)

	result, err := d.Send(context.Background(), SendRequest{Message: "hello"}, "staff-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.TargetCount != 0 || result.SuccessCount != 0 || result.FailedCount != 0 {
		t.Errorf("expected all-zero counts, got %+v", result)
	}
	if len(pusher.sent) != 0 {
		t.Error("zero-recipient run must not touch the push API")
	}
	stored, _ := logs.List(context.Background(), 10, 0)
	if len(stored) != 1 {
		t.Fatalf("a log row must still be written, got %d", len(stored))
	}
	if result.LogID == "" || stored[0].ID != result.LogID {
		t.Error("result must carry the persisted log id")
	}
}

func TestSendZeroRecipientsWorksWithoutPusher(t *testing.T) {
	repo := profiles.NewInMemoryRepository()
	d, _ := newTestDispatcher(repo, nil)
	if _, err := d.Send(context.Background(), SendRequest{Message: "hi"}, ""); err != nil {
		t.Fatalf("empty run must not need credentials: %v", err)
	}
}

func TestSendMissingCredentialsIsHardFailure(t *testing.T) {
	repo := profiles.NewInMemoryRepository()
	seedFriend(repo, "u1", "田中", 3)
	d, logs := newTestDispatcher(repo, nil)

	_, err := d.Send(context.Background(), SendRequest{Message: "hi"}, "")
	if !errors.Is(err, line.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	stored, _ := logs.List(context.Background(), 10, 0)
	if len(stored) != 0 {
		t.Error("a hard credential failure must not write a log row")
	}
}

func TestSendPersonalizesAndCounts(t *testing.T) {
	repo := profiles.NewInMemoryRepository()
	seedFriend(repo, "u1", "田中", 3)
	seedFriend(repo, "u2", "佐藤", 7)
	pusher := &fakePusher{}
	d, logs := newTestDispatcher(repo, pusher)

	result, err := d.Send(context.Background(),
		SendRequest{Message: "{name}様 {stamp_count}個"}, "staff-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.TargetCount != 2 || result.SuccessCount != 2 || result.FailedCount != 0 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if pusher.texts["Lu1"] != "田中様 3個" || pusher.texts["Lu2"] != "佐藤様 7個" {
		t.Errorf("messages must be personalized per recipient: %v", pusher.texts)
	}

	stored, _ := logs.List(context.Background(), 10, 0)
	if len(stored) != 1 {
		t.Fatalf("expected one log row, got %d", len(stored))
	}
	if stored[0].SentBy == nil || *stored[0].SentBy != "staff-1" {
		t.Error("log must record the sender")
	}
	if stored[0].TargetCount != 2 || stored[0].SuccessCount != 2 {
		t.Errorf("log counts mismatch: %+v", stored[0])
	}
}

func TestSendPartialFailureContinues(t *testing.T) {
	repo := profiles.NewInMemoryRepository()
	seedFriend(repo, "u1", "a", 1)
	seedFriend(repo, "u2", "b", 2)
	seedFriend(repo, "u3", "c", 3)
	pusher := &fakePusher{failOn: map[string]error{"Lu2": errors.New("blocked")}}
	d, logs := newTestDispatcher(repo, pusher)

	result, err := d.Send(context.Background(), SendRequest{Message: "hi"}, "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.SuccessCount != 2 || result.FailedCount != 1 {
		t.Errorf("one failure must not abort the batch: %+v", result)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("expected an outcome per recipient, got %d", len(result.Outcomes))
	}
	var failed *RecipientOutcome
	for i := range result.Outcomes {
		if !result.Outcomes[i].OK {
			failed = &result.Outcomes[i]
		}
	}
	if failed == nil || failed.UserID != "Lu2" || failed.Err == "" {
		t.Errorf("failed outcome must name the recipient and reason: %+v", failed)
	}

	stored, _ := logs.List(context.Background(), 10, 0)
	if len(stored) != 1 || stored[0].FailedCount != 1 {
		t.Error("log row must be written despite partial failure")
	}
}

func TestSendSkipsNonFriends(t *testing.T) {
	repo := profiles.NewInMemoryRepository()
	seedFriend(repo, "u1", "a", 1)
	no := false
	name := "b"
	repo.Add(&profiles.Profile{ID: "u2", LineUserID: "Lu2", DisplayName: &name, IsLineFriend: &no})
	repo.Add(&profiles.Profile{ID: "u3", DisplayName: &name}) // no LINE id
	pusher := &fakePusher{}
	d, _ := newTestDispatcher(repo, pusher)

	result, err := d.Send(context.Background(), SendRequest{Message: "hi"}, "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.TargetCount != 3 {
		t.Errorf("target count reflects the segment match, got %d", result.TargetCount)
	}
	if len(pusher.sent) != 1 || pusher.sent[0] != "Lu1" {
		t.Errorf("only friends with a LINE id receive pushes, got %v", pusher.sent)
	}
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	d, _ := newTestDispatcher(profiles.NewInMemoryRepository(), &fakePusher{})
	if _, err := d.Send(context.Background(), SendRequest{Message: "  "}, ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendBlockedDuringQuietHours(t *testing.T) {
	repo := profiles.NewInMemoryRepository()
	seedFriend(repo, "u1", "a", 1)
	pusher := &fakePusher{}
	d, logs := newTestDispatcher(repo, pusher)
	jst := time.FixedZone("JST", 9*3600)
	night := time.Date(2026, 5, 10, 22, 0, 0, 0, jst)
	d.now = func() time.Time { return night }

	_, err := d.Send(context.Background(), SendRequest{Message: "hi"}, "")
	if !errors.Is(err, ErrRestrictedWindow) {
		t.Fatalf("expected ErrRestrictedWindow, got %v", err)
	}
	if len(pusher.sent) != 0 {
		t.Error("quiet-hours rejection must happen before any push")
	}
	stored, _ := logs.List(context.Background(), 10, 0)
	if len(stored) != 0 {
		t.Error("a rejected run must not write a log row")
	}
}

func TestPreviewWorksWithoutCredentials(t *testing.T) {
	repo := profiles.NewInMemoryRepository()
	seedFriend(repo, "u1", "田中", 4)
	seedFriend(repo, "u2", "佐藤", 9)
	d, _ := newTestDispatcher(repo, nil)

	result, err := d.Preview(context.Background(),
		SendRequest{Message: "{name}様", Segment: Segment{StampCount: &IntRange{Min: intPtr(5)}}})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if result.TargetCount != 1 {
		t.Errorf("expected 1 match, got %d", result.TargetCount)
	}
	if len(result.Recipients) != 1 || result.Recipients[0].Rendered != "佐藤様" {
		t.Errorf("preview must render the sample, got %+v", result.Recipients)
	}
}
