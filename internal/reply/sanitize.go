// Package reply sanitizes raw model output into a short, speakable
// coaching line. All functions are pure.
package reply

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/sunnylabs/coachd/internal/profile"
)

const maxSentences = 2

// Word budgets per audience mode. Replies over budget are replaced with a
// canned re-ask rather than truncated, so the trailing question survives.
const (
	childWordBudget = 35
	adultWordBudget = 60
)

// cueRegex matches bracketed control tokens like [[CUE_SMILE]] or
// [[ESCALATE_GROWNUP]] meant for the front-end, never for speech.
var cueRegex = regexp.MustCompile(`\[\[([^\[\]]*)\]\]`)

// Options parameterize one sanitization pass.
type Options struct {
	// Mode selects the word budget.
	Mode profile.Mode
	// SessionLang is the session's configured language tag, the fallback
	// for detection.
	SessionLang string
	// Reask is the phase-appropriate canned replacement used when the
	// model output is unusable (empty, question-less, or over budget).
	Reask string
}

// Result is the sanitized, speech-ready reply.
type Result struct {
	Text string
	Lang string
	Cues []string
}

// Sanitize strips cue tokens, clamps the reply to two sentences, enforces
// the trailing-question and word-budget invariants, and detects the
// dominant language for voice selection.
func Sanitize(raw string, opts Options) Result {
	clean, cues := ExtractCues(raw)
	clean = normalizeWhitespace(clean)
	clean = ClampSentences(clean, maxSentences)
	clean = ensureQuestion(clean, opts.Reask)

	if wordCount(clean) > budgetFor(opts.Mode) {
		clean = opts.Reask
	}

	return Result{
		Text: clean,
		Lang: DetectLanguage(clean, opts.SessionLang),
		Cues: cues,
	}
}

// ExtractCues removes every [[...]] control token and returns the cleaned
// text together with the cue names, in order of appearance.
func ExtractCues(s string) (string, []string) {
	var cues []string
	for _, m := range cueRegex.FindAllStringSubmatch(s, -1) {
		if cue := strings.TrimSpace(m[1]); cue != "" {
			cues = append(cues, cue)
		}
	}
	return cueRegex.ReplaceAllString(s, " "), cues
}

// ClampSentences keeps at most n sentences, splitting on sentence-ending
// punctuation followed by whitespace.
func ClampSentences(s string, n int) string {
	parts := splitSentences(s)
	if len(parts) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Join(parts[:n], " "))
}

func splitSentences(s string) []string {
	var parts []string
	var b strings.Builder
	runes := []rune(strings.TrimSpace(s))
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			// Consume trailing punctuation runs like "?!" as one boundary.
			for i+1 < len(runes) && isSentenceEnd(runes[i+1]) {
				i++
				b.WriteRune(runes[i])
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				parts = append(parts, strings.TrimSpace(b.String()))
				b.Reset()
			}
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// ensureQuestion guarantees the reply ends with exactly one question mark.
// Anything that cannot be repaired in place is replaced by the canned
// re-ask, which carries its own question.
func ensureQuestion(s, reask string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return reask
	}

	// Collapse trailing "??" / "?!" runs down to a single question mark.
	trimmed := strings.TrimRightFunc(s, func(r rune) bool {
		return r == '?' || r == '!' || r == '.'
	})
	if strings.Contains(s[len(trimmed):], "?") {
		return trimmed + "?"
	}
	return reask
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func budgetFor(mode profile.Mode) int {
	if mode == profile.ModeAdult {
		return adultWordBudget
	}
	return childWordBudget
}
