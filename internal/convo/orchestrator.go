// Package convo is the turn orchestrator: it sequences a conversation
// turn from profile load through phase derivation, prompt composition,
// model routing, and reply sanitization, then persists the new turn.
package convo

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/prompt"
	"github.com/sunnylabs/coachd/internal/reply"
	"github.com/sunnylabs/coachd/internal/router"
	"github.com/sunnylabs/coachd/internal/session"
)

// ModelRouter is the routing contract the orchestrator depends on.
type ModelRouter interface {
	Route(ctx context.Context, messages []router.Message, filler string) (text, modelUsed string, err error)
}

// Request is one conversation turn from a learner (or a synthetic seed or
// silence turn).
type Request struct {
	UserID      string
	UserText    string
	IncludeSeed bool
	NoReply     bool
	TurnCount   int

	// Optional caller-supplied facts and overrides.
	NameHint  string
	AgeHint   int
	ModeHint  string // per-turn override, never persisted
	LangHint  string
	Objective string
}

// Result is the sanitized, speech-ready outcome of one turn.
type Result struct {
	Reply     string
	ModelUsed string
	Lang      string
	Cues      []string
	Profile   *profile.Profile
}

// Orchestrator wires the per-turn pipeline together.
type Orchestrator struct {
	store    profile.Store
	composer *prompt.Composer
	router   ModelRouter
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(store profile.Store, composer *prompt.Composer, mr ModelRouter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		store:    store,
		composer: composer,
		router:   mr,
		logger:   logger.With("component", "orchestrator"),
	}
}

// HandleTurn runs one full turn. Storage and model failures are recovered
// locally; the learner always receives a speakable reply. The only hard
// error is exhaustion of both model tiers plus local filler synthesis,
// which is a defect, not a runtime path.
func (o *Orchestrator) HandleTurn(ctx context.Context, req Request) (*Result, error) {
	p, storeOK := o.loadProfile(ctx, req.UserID)
	o.applyHints(ctx, p, req, storeOK)

	// Per-turn mode override, not persisted.
	eff := *p
	if profile.ValidMode(req.ModeHint) {
		eff.Mode = profile.Mode(req.ModeHint)
	}

	history := o.loadHistory(ctx, req.UserID, storeOK)
	lastAssistant := lastAssistantText(history)

	sess := session.Context{
		Objective:    req.Objective,
		IncludeSeed:  req.IncludeSeed,
		NoReply:      req.NoReply,
		PriorSilence: wasSilentTurn(history),
		UserText:     req.UserText,
		TurnCount:    req.TurnCount,
	}
	phase := session.DerivePhase(p, sess.EffectiveTurnCount(len(history)))

	instruction := session.Instruction(phase, sess, lastAssistant)
	system := o.composer.Compose(&eff, sess, instruction)
	messages := BuildMessages(system, history, sess)

	filler := session.FillerLine(p.DisplayName(), p.AgeOrDefault())
	text, modelUsed, err := o.router.Route(ctx, messages, filler)
	if err != nil {
		return nil, err
	}

	sanitized := reply.Sanitize(text, reply.Options{
		Mode:        eff.Mode,
		SessionLang: p.Lang,
		Reask:       session.Reask(phase, p.DisplayName()),
	})

	// Never say the exact same thing twice in a row.
	if sanitized.Text == lastAssistant {
		sanitized.Text = session.VaryReask(phase, p.DisplayName(), lastAssistant)
		sanitized.Lang = reply.DetectLanguage(sanitized.Text, p.Lang)
	}

	o.persistTurn(ctx, req, sanitized.Text, storeOK)

	o.logger.InfoContext(ctx, "Turn handled",
		"user_id", req.UserID, "model", modelUsed, "lang", sanitized.Lang)

	return &Result{
		Reply:     sanitized.Text,
		ModelUsed: modelUsed,
		Lang:      sanitized.Lang,
		Cues:      sanitized.Cues,
		Profile:   p,
	}, nil
}

// loadProfile fetches or creates the profile, falling back to an
// in-memory default when the store is unavailable.
func (o *Orchestrator) loadProfile(ctx context.Context, userID string) (*profile.Profile, bool) {
	p, err := o.store.GetOrCreate(ctx, userID)
	if err != nil {
		o.logger.WarnContext(ctx, "Profile store unavailable, using in-memory default",
			"user_id", userID, "error", err)
		return profile.Default(userID), false
	}
	return p, true
}

// applyHints records caller-supplied facts (name, age, language) on the
// profile. Newly learned facts are persisted; persistence failures only
// affect continuity, never the current turn.
func (o *Orchestrator) applyHints(ctx context.Context, p *profile.Profile, req Request, storeOK bool) {
	changed := false
	if name := strings.TrimSpace(req.NameHint); name != "" && name != p.Name {
		p.Name = name
		changed = true
	}
	if req.AgeHint > 0 && req.AgeHint != p.Age {
		p.Age = req.AgeHint
		p.Mode = profile.ModeForAge(req.AgeHint)
		changed = true
	}
	if lang := strings.TrimSpace(req.LangHint); lang != "" && lang != p.Lang {
		p.Lang = lang
		changed = true
	}

	if changed && storeOK {
		if err := o.store.Update(ctx, p); err != nil {
			o.logger.WarnContext(ctx, "Failed to persist learned facts",
				"user_id", p.UserID, "error", err)
		}
	}
}

func (o *Orchestrator) loadHistory(ctx context.Context, userID string, storeOK bool) []profile.Turn {
	if !storeOK {
		return nil
	}
	history, err := o.store.RecentTurns(ctx, userID, profile.HistoryCap)
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to load history, continuing without it",
			"user_id", userID, "error", err)
		return nil
	}
	return history
}

func (o *Orchestrator) persistTurn(ctx context.Context, req Request, replyText string, storeOK bool) {
	if !storeOK {
		return
	}
	// On a seed turn the coach speaks first and any user text never
	// reaches the model, so it must not enter history either.
	if userText := strings.TrimSpace(req.UserText); userText != "" && !req.IncludeSeed {
		if err := o.store.AppendTurn(ctx, req.UserID, profile.RoleUser, userText); err != nil {
			o.logger.WarnContext(ctx, "Failed to store learner turn", "user_id", req.UserID, "error", err)
		}
	}
	if err := o.store.AppendTurn(ctx, req.UserID, profile.RoleAssistant, replyText); err != nil {
		o.logger.WarnContext(ctx, "Failed to store coach turn", "user_id", req.UserID, "error", err)
	}
}

// wasSilentTurn reports whether the previous turn was silent. A normal
// turn stores a learner row then a coach row; a silent turn stores only
// the coach's, so the history tail shows an unpaired assistant entry.
func wasSilentTurn(history []profile.Turn) bool {
	n := len(history)
	if n == 0 || history[n-1].Role != profile.RoleAssistant {
		return false
	}
	return n == 1 || history[n-2].Role == profile.RoleAssistant
}

func lastAssistantText(history []profile.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == profile.RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}
