package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/sunnylabs/coachd/internal/config"
	"github.com/sunnylabs/coachd/internal/convo"
	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/prompt"
	"github.com/sunnylabs/coachd/internal/router"
	"github.com/sunnylabs/coachd/internal/server"
)

type fakeStore struct {
	profiles map[string]*profile.Profile
	turns    map[string][]profile.Turn
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]*profile.Profile),
		turns:    make(map[string][]profile.Turn),
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetOrCreate(_ context.Context, userID string) (*profile.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	p := profile.Default(userID)
	f.profiles[userID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, p *profile.Profile) error {
	cp := *p
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeStore) AppendTurn(_ context.Context, userID, role, content string) error {
	f.turns[userID] = append(f.turns[userID], profile.Turn{UserID: userID, Role: role, Content: content})
	return nil
}

func (f *fakeStore) RecentTurns(_ context.Context, userID string, _ int) ([]profile.Turn, error) {
	return append([]profile.Turn(nil), f.turns[userID]...), nil
}

func (f *fakeStore) AllProfiles(context.Context) ([]profile.Profile, error) {
	out := make([]profile.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeStore) Reset(_ context.Context, userID string) error {
	delete(f.profiles, userID)
	delete(f.turns, userID)
	return nil
}

func (f *fakeStore) RunMaintenance(context.Context) error { return nil }

type fakeRouter struct{ reply string }

func (f *fakeRouter) Route(_ context.Context, _ []router.Message, _ string) (string, string, error) {
	return f.reply, "gpt-5", nil
}

func newTestHandler(store profile.Store, reply string) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := convo.New(store, prompt.NewComposer("", nil), &fakeRouter{reply: reply}, log)
	srv := server.New(config.ServerConfig{
		Addr:           ":0",
		AllowedOrigins: []string{"*"},
	}, log, orch, store, nil)
	return srv.Handler()
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeStore(), "Hello?")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeStore(), "Nice to meet you! How old are you?")

	body := bytes.NewBufferString(`{"user_id":"u1","text":"I'm Mia","name":"Mia"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Reply   string           `json:"reply"`
		Model   string           `json:"model"`
		Lang    string           `json:"lang"`
		Profile *profile.Profile `json:"profile"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "Nice to meet you! How old are you?" {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.Model != "gpt-5" {
		t.Errorf("model = %q, want gpt-5", resp.Model)
	}
	if resp.Profile == nil || resp.Profile.Name != "Mia" {
		t.Errorf("profile = %+v, want the updated profile echoed back", resp.Profile)
	}
}

func TestChatEndpoint_RequiresUserID(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeStore(), "Hello?")
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"text":"hi"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProfilesEndpoint(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	h := newTestHandler(store, "Hello?")

	for _, id := range []string{"b", "a"} {
		if _, err := store.GetOrCreate(context.Background(), id); err != nil {
			t.Fatalf("seed profile %q: %v", id, err)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got []profile.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 || got[0].UserID != "a" || got[1].UserID != "b" {
		t.Errorf("profiles = %+v, want a then b", got)
	}
}

func TestProfilesEndpoint_EmptyList(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeStore(), "Hello?")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Errorf("empty listing = %s, want []", body)
	}
}

func TestProfileEndpoint_UpdateAndReset(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	h := newTestHandler(store, "Hello?")

	body := bytes.NewBufferString(`{"user_id":"u1","name":"Mia","age":6}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/profile", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	if p := store.profiles["u1"]; p.Name != "Mia" || p.Age != 6 {
		t.Errorf("stored profile = %+v", p)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/profile",
		bytes.NewBufferString(`{"user_id":"u1","reset":true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	var got profile.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.KnownName() {
		t.Errorf("profile after reset = %+v, want a fresh one", got)
	}
}

func TestSpeechEndpointsWithoutService(t *testing.T) {
	t.Parallel()

	h := newTestHandler(newFakeStore(), "Hello?")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tts",
		bytes.NewBufferString(`{"text":"hi","lang":"en-US"}`)))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("tts status = %d, want 501", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transcribe", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("transcribe status = %d, want 501", rec.Code)
	}
}
