package session

import (
	"fmt"
	"strings"
)

// Canned lines used when the model output is unusable or both model tiers
// fail. Every line ends in exactly one question so sanitized replies keep
// their trailing-question invariant.

var reaskLines = map[Kind][]string{
	NeedName: {
		"Hi there! What's your name?",
		"I'd love to know what to call you. What's your name?",
		"Let's start with names. What is yours?",
	},
	NeedAge: {
		"%s, how old are you?",
		"Nice to meet you, %s! Can you tell me your age?",
		"One more thing, %s. How many years old are you?",
	},
	Assessing: {
		"Let's play a quick game, %s. Ready?",
		"%s, want to try a tiny challenge with me?",
		"How about a fun little puzzle, %s?",
	},
	FreeCoaching: {
		"%s, what would you like to try next?",
		"Want to keep going, %s?",
		"What sounds fun to you right now, %s?",
	},
}

// Reask returns the canned safe re-ask line for a phase.
func Reask(ph Phase, name string) string {
	return reaskAt(ph, name, 0)
}

// VaryReask returns a canned re-ask that differs from avoid, so two
// silence turns in a row never produce identical replies.
func VaryReask(ph Phase, name, avoid string) string {
	lines := reaskLines[ph.Kind]
	for i := range lines {
		if line := reaskAt(ph, name, i); line != avoid {
			return line
		}
	}
	return reaskAt(ph, name, 0)
}

func reaskAt(ph Phase, name string, i int) string {
	lines := reaskLines[ph.Kind]
	line := lines[i%len(lines)]
	if strings.Contains(line, "%s") {
		return fmt.Sprintf(line, name)
	}
	return line
}

// FillerLine synthesizes a local age-appropriate opener, used when both
// model tiers fail so the conversation never stalls.
func FillerLine(name string, age int) string {
	switch {
	case age < 13:
		return fmt.Sprintf("Hi, %s! Want to play a quick learning game with me?", name)
	case age < 18:
		return fmt.Sprintf("Hey %s, ready for a fast check-in and a mini study plan?", name)
	default:
		return fmt.Sprintf("Hi %s, I'm Miss Sunny. What would you like to work on first?", name)
	}
}
