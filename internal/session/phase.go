// Package session decides which conversational phase a turn belongs to
// and supplies the per-phase coaching instructions.
package session

import (
	"fmt"

	"github.com/sunnylabs/coachd/internal/profile"
)

// Kind enumerates the conversational phases.
type Kind int

const (
	// NeedName: the learner's name is unknown; ask only for it.
	NeedName Kind = iota
	// NeedAge: name is known, age is not.
	NeedAge
	// Assessing: playful probes across the learning domains.
	Assessing
	// FreeCoaching: open coaching for the rest of the session.
	FreeCoaching
)

// Phase is the derived conversational phase for one turn.
type Phase struct {
	Kind   Kind
	Domain int // index into Domains, meaningful only while Assessing
}

// Domains probed during the assessment phase, in rotation order.
var Domains = []string{
	"reading and letter sounds",
	"writing and letters",
	"counting and small sums",
	"patterns and simple logic",
	"everyday science",
	"sharing and feelings",
	"general knowledge like colors and animals",
}

// ProbesPerDomain bounds how many assessment turns each domain gets.
const ProbesPerDomain = 2

// assessmentBudget is the total number of assessment turns before the
// session settles permanently into free coaching.
var assessmentBudget = len(Domains) * ProbesPerDomain

// DerivePhase re-derives the phase from the profile and a turn counter.
// The phase is never persisted; reconstruction from durable facts keeps
// the machine idempotent and resumable if the session context is lost.
func DerivePhase(p *profile.Profile, turnCount int) Phase {
	switch {
	case !p.KnownName():
		return Phase{Kind: NeedName}
	case !p.KnownAge():
		return Phase{Kind: NeedAge}
	case turnCount < assessmentBudget:
		if turnCount < 0 {
			turnCount = 0
		}
		return Phase{Kind: Assessing, Domain: turnCount / ProbesPerDomain}
	default:
		return Phase{Kind: FreeCoaching}
	}
}

// Context carries the ephemeral, per-request turn parameters.
type Context struct {
	// Objective is the free-text goal for this turn.
	Objective string
	// IncludeSeed marks the first turn of a session, where the coach
	// speaks first.
	IncludeSeed bool
	// NoReply marks a silence turn: the learner produced no usable input.
	NoReply bool
	// PriorSilence marks that the previous turn was also silent, derived
	// from history shape (a silent turn stores only the coach's row).
	PriorSilence bool
	// UserText is the raw learner input, possibly empty.
	UserText string
	// TurnCount is the caller-supplied turn counter, zero if absent.
	TurnCount int
}

// EffectiveTurnCount returns the session turn counter, inferring it from
// the stored history length when the caller did not supply one.
func (c Context) EffectiveTurnCount(historyLen int) int {
	if c.TurnCount > 0 {
		return c.TurnCount
	}
	// Each completed turn stores up to two entries (learner + coach).
	return historyLen / 2
}

// Instruction produces the live coaching instruction for the derived
// phase. lastAssistant is the coach's previous utterance, used to steer
// silence handling and forbid verbatim repeats.
func Instruction(ph Phase, sess Context, lastAssistant string) string {
	if sess.NoReply && !sess.IncludeSeed {
		return silenceInstruction(sess.PriorSilence, lastAssistant)
	}

	switch ph.Kind {
	case NeedName:
		return "You do not know the learner's name yet. Warmly ask only for their name. " +
			"Do not ask about age or anything else yet; one short question."
	case NeedAge:
		return "You know the learner's name but not their age. " +
			"Ask only how old they are, in one short friendly question."
	case Assessing:
		domain := Domains[ph.Domain%len(Domains)]
		return fmt.Sprintf("Run one tiny playful probe on %s. "+
			"Keep it game-like, praise the attempt, and ask exactly one simple question.", domain)
	default:
		return "Continue coaching toward the session objective. " +
			"Build on the learner's last answer with one tiny idea and one simple question."
	}
}

func silenceInstruction(priorSilence bool, lastAssistant string) string {
	base := "The learner stayed quiet. Re-ask with simpler, shorter phrasing (under 15 words)."
	if priorSilence {
		base = "The learner stayed quiet again. Offer a choice of exactly two easy activities and ask which one they want."
	}
	if lastAssistant != "" {
		base += fmt.Sprintf(" Do not repeat this exact line: %q.", lastAssistant)
	}
	return base
}
