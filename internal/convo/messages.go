package convo

import (
	"strings"

	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/router"
	"github.com/sunnylabs/coachd/internal/session"
)

// historyWindow bounds how many stored turns are replayed into the model
// request. A tuning knob, not a correctness requirement.
const historyWindow = 8

// seedInstruction is the live message for the first turn of a session,
// where the coach speaks first.
const seedInstruction = "Please greet warmly and immediately begin a brief, age-appropriate assessment or starter plan. " +
	"Ask one short question the learner can answer out loud."

// silenceNudge is the live message for a silent turn.
const silenceNudge = "The learner is quiet. Keep the session moving with the next short step or question. " +
	"Be encouraging and specific."

// BuildMessages assembles the ordered model request: the composed system
// instruction, the replayed history window oldest-first, and exactly one
// live trailing message. The tail is never omitted: a silent turn gets a
// synthetic nudge, never a blank message.
func BuildMessages(system string, history []profile.Turn, sess session.Context) []router.Message {
	messages := make([]router.Message, 0, len(history)+2)
	messages = append(messages, router.Message{Role: router.RoleSystem, Content: system})

	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	for _, t := range window {
		role := router.RoleUser
		if t.Role == profile.RoleAssistant {
			role = router.RoleAssistant
		}
		messages = append(messages, router.Message{Role: role, Content: t.Content})
	}

	userText := strings.TrimSpace(sess.UserText)
	switch {
	case sess.IncludeSeed:
		messages = append(messages, router.Message{Role: router.RoleUser, Content: seedInstruction})
	case sess.NoReply || userText == "":
		messages = append(messages, router.Message{Role: router.RoleUser, Content: silenceNudge})
	default:
		messages = append(messages, router.Message{Role: router.RoleUser, Content: userText})
	}
	return messages
}
