package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sunnylabs/coachd/internal/convo"
	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/speech"
)

const (
	maxChatBody  = 64 << 10
	maxAudioBody = 25 << 20
)

type handlers struct {
	logger *slog.Logger
	orch   *convo.Orchestrator
	store  profile.Store
	speech *speech.Service
}

type chatRequest struct {
	UserID      string `json:"user_id"`
	Text        string `json:"text"`
	IncludeSeed bool   `json:"include_seed"`
	NoReply     bool   `json:"no_reply"`
	TurnCount   int    `json:"turn_count"`
	Name        string `json:"name,omitempty"`
	Age         int    `json:"age,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Lang        string `json:"lang,omitempty"`
	Objective   string `json:"objective,omitempty"`
}

type chatResponse struct {
	Reply   string           `json:"reply"`
	Model   string           `json:"model"`
	Lang    string           `json:"lang"`
	Cues    []string         `json:"cues,omitempty"`
	Profile *profile.Profile `json:"profile,omitempty"`
}

type profileRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Age    int    `json:"age,omitempty"`
	Lang   string `json:"lang,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Notes  string `json:"notes,omitempty"`
	Reset  bool   `json:"reset,omitempty"`
}

type ttsRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, maxChatBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	res, err := h.orch.HandleTurn(r.Context(), convo.Request{
		UserID:      req.UserID,
		UserText:    req.Text,
		IncludeSeed: req.IncludeSeed,
		NoReply:     req.NoReply,
		TurnCount:   req.TurnCount,
		NameHint:    req.Name,
		AgeHint:     req.Age,
		ModeHint:    req.Mode,
		LangHint:    req.Lang,
		Objective:   req.Objective,
	})
	if err != nil {
		h.logger.Error("turn failed", "error", err, "user_id", req.UserID)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to produce a reply"})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:   res.Reply,
		Model:   res.ModelUsed,
		Lang:    res.Lang,
		Cues:    res.Cues,
		Profile: res.Profile,
	})
}

func (h *handlers) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, maxChatBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	if req.Reset {
		if err := h.store.Reset(r.Context(), req.UserID); err != nil {
			h.logger.Error("profile reset failed", "error", err, "user_id", req.UserID)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reset failed"})
			return
		}
	}

	p, err := h.store.GetOrCreate(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("profile load failed", "error", err, "user_id", req.UserID)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "profile load failed"})
		return
	}

	changed := false
	if req.Name != "" {
		p.Name = req.Name
		changed = true
	}
	if req.Age > 0 {
		p.Age = req.Age
		changed = true
	}
	if req.Lang != "" {
		p.Lang = req.Lang
		changed = true
	}
	if req.Mode != "" {
		if !profile.ValidMode(req.Mode) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mode"})
			return
		}
		p.Mode = profile.Mode(req.Mode)
		changed = true
	}
	if req.Notes != "" {
		p.Notes = req.Notes
		changed = true
	}
	if changed {
		if err := h.store.Update(r.Context(), p); err != nil {
			h.logger.Error("profile update failed", "error", err, "user_id", req.UserID)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "profile update failed"})
			return
		}
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.AllProfiles(r.Context())
	if err != nil {
		h.logger.Error("profile listing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "profile listing failed"})
		return
	}
	if profiles == nil {
		profiles = []profile.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *handlers) handleTTS(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "speech is not configured"})
		return
	}
	var req ttsRequest
	if err := decodeJSON(r, maxChatBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), req.Text, req.Lang)
	if err != nil {
		h.logger.Error("speech synthesis failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "speech synthesis failed"})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (h *handlers) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "speech is not configured"})
		return
	}
	if err := r.ParseMultipartForm(maxAudioBody); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "audio file is required"})
		return
	}
	defer file.Close()

	text, err := h.speech.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		h.logger.Error("transcription failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "transcription failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func decodeJSON(r *http.Request, limit int64, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
