package profiles

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

func newTestHandler() (*Handler, *InMemoryRepository) {
	repo := NewInMemoryRepository()
	logger := logging.NewWithWriter("error", io.Discard)
	return NewHandler(repo, nil, nil, logger), repo
}

func doRequest(h http.HandlerFunc, method, path, id string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestStampSetValid(t *testing.T) {
	h, repo := newTestHandler()
	p := repo.Add(&Profile{StampCount: 3})

	w := doRequest(h.StampSet, http.MethodPatch, "/api/profiles/x/stamp-set", p.ID, StampSetRequest{StampCount: 42})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got Profile
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.StampCount != 42 {
		t.Errorf("expected 42 stamps, got %d", got.StampCount)
	}
}

func TestStampSetOutOfRange(t *testing.T) {
	h, repo := newTestHandler()
	p := repo.Add(&Profile{StampCount: 3})

	for _, count := range []int{-1, MaxStampCount + 1} {
		w := doRequest(h.StampSet, http.MethodPatch, "/api/profiles/x/stamp-set", p.ID, StampSetRequest{StampCount: count})
		if w.Code != http.StatusBadRequest {
			t.Errorf("count %d: expected 400, got %d", count, w.Code)
		}
	}

	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.StampCount != 3 {
		t.Errorf("rejected set must not mutate, got %d stamps", got.StampCount)
	}
}

func TestStampDeltaClamps(t *testing.T) {
	h, repo := newTestHandler()
	p := repo.Add(&Profile{StampCount: 2})

	w := doRequest(h.StampDelta, http.MethodPatch, "/api/profiles/x/stamp", p.ID, StampDeltaRequest{Delta: -10})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got Profile
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.StampCount != 0 {
		t.Errorf("negative overshoot must clamp to 0, got %d", got.StampCount)
	}

	w = doRequest(h.StampDelta, http.MethodPatch, "/api/profiles/x/stamp", p.ID, StampDeltaRequest{Delta: 5000})
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.StampCount != MaxStampCount {
		t.Errorf("positive overshoot must clamp to %d, got %d", MaxStampCount, got.StampCount)
	}
}

func TestStampDeltaZeroRejected(t *testing.T) {
	h, repo := newTestHandler()
	p := repo.Add(&Profile{})

	w := doRequest(h.StampDelta, http.MethodPatch, "/api/profiles/x/stamp", p.ID, StampDeltaRequest{Delta: 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStampDeltaNotFound(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h.StampDelta, http.MethodPatch, "/api/profiles/x/stamp", "missing", StampDeltaRequest{Delta: 1})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestNextVisitMemoTooLong(t *testing.T) {
	h, repo := newTestHandler()
	p := repo.Add(&Profile{})

	memo := ""
	for i := 0; i < MaxMemoLength+1; i++ {
		memo += "あ"
	}
	w := doRequest(h.NextVisit, http.MethodPatch, "/api/profiles/x/next-visit", p.ID, NextVisitUpdate{Memo: &memo})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for 201-rune memo, got %d", w.Code)
	}
}

func TestPatchViewModeValidation(t *testing.T) {
	h, repo := newTestHandler()
	p := repo.Add(&Profile{})

	bad := "teen"
	w := doRequest(h.Patch, http.MethodPatch, "/api/profiles/x", p.ID, Update{ViewMode: &bad})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid view mode, got %d", w.Code)
	}

	good := ViewModeKids
	w = doRequest(h.Patch, http.MethodPatch, "/api/profiles/x", p.ID, Update{ViewMode: &good})
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPatchClearsFieldWithEmptyString(t *testing.T) {
	h, repo := newTestHandler()
	ticket := "A-123"
	p := repo.Add(&Profile{TicketNumber: &ticket})

	empty := ""
	w := doRequest(h.Patch, http.MethodPatch, "/api/profiles/x", p.ID, Update{TicketNumber: &empty})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.TicketNumber != nil {
		t.Errorf("empty string must clear ticket_number, got %v", *got.TicketNumber)
	}
}

func TestReservationClick(t *testing.T) {
	h, repo := newTestHandler()
	p := repo.Add(&Profile{})

	for i := 0; i < 3; i++ {
		w := doRequest(h.ReservationClick, http.MethodPost, "/api/users/x/reservation-click", p.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.ReservationClicks != 3 {
		t.Errorf("expected 3 clicks, got %d", got.ReservationClicks)
	}
}
