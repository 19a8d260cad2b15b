package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wakabadc/clinic-line-admin/internal/clinic"
	"github.com/wakabadc/clinic-line-admin/internal/line"
	"github.com/wakabadc/clinic-line-admin/internal/observability/metrics"
	"github.com/wakabadc/clinic-line-admin/internal/profiles"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// DefaultSendDelay spaces push calls to stay under the LINE API rate
// ceiling (at most 20 sends per second).
const DefaultSendDelay = 50 * time.Millisecond

// PreviewSampleSize caps how many matched profiles a preview returns.
const PreviewSampleSize = 10

// Pusher delivers one message to one recipient. Implemented by the LINE
// client; nil means channel credentials were never configured.
type Pusher interface {
	Push(ctx context.Context, to, text string) error
}

// Dispatcher orchestrates a broadcast run: load, filter, render, push with
// pacing, aggregate, and persist one log row per run.
type Dispatcher struct {
	profiles profiles.Repository
	logs     LogRepository
	pusher   Pusher
	settings *clinic.Store
	metrics  *metrics.DashboardMetrics
	logger   *logging.Logger
	delay    time.Duration
	now      func() time.Time
}

// NewDispatcher wires a dispatcher. pusher may be nil when LINE credentials
// are absent; previews still work, sends fail hard.
func NewDispatcher(repo profiles.Repository, logs LogRepository, pusher Pusher,
	settings *clinic.Store, m *metrics.DashboardMetrics, logger *logging.Logger,
	delay time.Duration) *Dispatcher {
	if delay <= 0 {
		delay = DefaultSendDelay
	}
	return &Dispatcher{
		profiles: repo,
		logs:     logs,
		pusher:   pusher,
		settings: settings,
		metrics:  m,
		logger:   logger,
		delay:    delay,
		now:      time.Now,
	}
}

// Send runs one broadcast. The target count reflects the segment match;
// pushes only go to matched profiles with a LINE id and friend status true.
// One recipient's failure never aborts the rest, and the log row is written
// regardless of partial failure. A run with nobody to push to short-circuits
// without touching the LINE API.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest, sentBy string) (*SendResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	settings, err := d.settings.Get(ctx)
	if err != nil {
		d.logger.Warn("failed to load clinic settings, using defaults", "error", err)
		settings = clinic.DefaultSettings()
	}
	if settings.InQuietHours(d.now()) {
		return nil, ErrRestrictedWindow
	}

	list, err := d.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("broadcast: load recipients: %w", err)
	}

	matched := Filter(list, req.Segment, d.now())
	eligible := deliverable(matched)

	result := &SendResult{TargetCount: len(matched)}

	if len(eligible) == 0 {
		d.persistLog(ctx, req, sentBy, result)
		d.metrics.ObserveBroadcastRun("empty")
		d.logger.Info("broadcast matched no deliverable recipients",
			"target_count", result.TargetCount)
		return result, nil
	}

	if d.pusher == nil {
		return nil, line.ErrNotConfigured
	}

	for i, p := range eligible {
		text := Render(req.Message, p)
		outcome := RecipientOutcome{UserID: p.LineUserID, OK: true}
		if err := d.pusher.Push(ctx, p.LineUserID, text); err != nil {
			outcome.OK = false
			outcome.Err = err.Error()
			result.FailedCount++
			d.metrics.ObserveRecipient("failure")
			d.logger.Warn("push failed", "line_user_id", p.LineUserID, "error", err)
		} else {
			result.SuccessCount++
			d.metrics.ObserveRecipient("success")
		}
		result.Outcomes = append(result.Outcomes, outcome)

		if i < len(eligible)-1 {
			if err := d.pause(ctx); err != nil {
				// Remaining recipients were never attempted; count them
				// as failures so the log reflects the whole audience.
				for _, rest := range eligible[i+1:] {
					result.Outcomes = append(result.Outcomes,
						RecipientOutcome{UserID: rest.LineUserID, Err: err.Error()})
					result.FailedCount++
				}
				break
			}
		}
	}

	d.persistLog(ctx, req, sentBy, result)
	if result.FailedCount > 0 {
		d.metrics.ObserveBroadcastRun("partial")
	} else {
		d.metrics.ObserveBroadcastRun("completed")
	}
	d.logger.Info("broadcast completed",
		"target_count", result.TargetCount,
		"success_count", result.SuccessCount,
		"failed_count", result.FailedCount,
		"log_id", result.LogID)
	return result, nil
}

// Preview estimates a run without contacting the LINE API, so it works with
// no channel credentials configured.
func (d *Dispatcher) Preview(ctx context.Context, req SendRequest) (*PreviewResult, error) {
	list, err := d.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("broadcast: load recipients: %w", err)
	}
	matched := Filter(list, req.Segment, d.now())

	result := &PreviewResult{TargetCount: len(matched)}
	for _, p := range matched {
		if len(result.Recipients) >= PreviewSampleSize {
			break
		}
		name := ""
		if p.DisplayName != nil {
			name = *p.DisplayName
		}
		result.Recipients = append(result.Recipients, PreviewRecipient{
			UserID:      p.ID,
			DisplayName: name,
			Rendered:    Render(req.Message, p),
		})
	}
	return result, nil
}

// deliverable keeps matched profiles that can actually receive a push.
func deliverable(matched []*profiles.Profile) []*profiles.Profile {
	out := make([]*profiles.Profile, 0, len(matched))
	for _, p := range matched {
		if p.LineUserID != "" && p.IsLineFriend != nil && *p.IsLineFriend {
			out = append(out, p)
		}
	}
	return out
}

func (d *Dispatcher) persistLog(ctx context.Context, req SendRequest, sentBy string, result *SendResult) {
	captured, err := json.Marshal(req.Segment)
	if err != nil {
		captured = []byte("{}")
	}
	log := &Log{
		Segment:      captured,
		Message:      req.Message,
		TargetCount:  result.TargetCount,
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailedCount,
	}
	if sentBy != "" {
		log.SentBy = &sentBy
	}
	if err := d.logs.Insert(ctx, log); err != nil {
		d.logger.Error("failed to save broadcast log", "error", err)
		return
	}
	result.LogID = log.ID
}

func (d *Dispatcher) pause(ctx context.Context) error {
	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
