package convo_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sunnylabs/coachd/internal/convo"
	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/router"
	"github.com/sunnylabs/coachd/internal/session"
)

func TestBuildMessages_Order(t *testing.T) {
	t.Parallel()

	history := []profile.Turn{
		{Role: profile.RoleUser, Content: "hi"},
		{Role: profile.RoleAssistant, Content: "Hello! What's your name?"},
	}

	msgs := convo.BuildMessages("SYSTEM", history, session.Context{UserText: "I'm Mia"})

	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].Role != router.RoleSystem || msgs[0].Content != "SYSTEM" {
		t.Errorf("first message = %+v, want the system instruction", msgs[0])
	}
	if msgs[1].Role != router.RoleUser || msgs[2].Role != router.RoleAssistant {
		t.Errorf("history roles = %s, %s, want user then assistant", msgs[1].Role, msgs[2].Role)
	}
	last := msgs[len(msgs)-1]
	if last.Role != router.RoleUser || last.Content != "I'm Mia" {
		t.Errorf("tail = %+v, want the live user text", last)
	}
}

func TestBuildMessages_Tail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sess     session.Context
		contains string
	}{
		{"Seed turn gets the opener instruction", session.Context{IncludeSeed: true}, "greet warmly"},
		{"Silence gets the nudge", session.Context{NoReply: true}, "quiet"},
		{"Blank text also gets the nudge", session.Context{UserText: "   "}, "quiet"},
		{"Seed wins over user text", session.Context{IncludeSeed: true, UserText: "hello"}, "greet warmly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msgs := convo.BuildMessages("SYSTEM", nil, tt.sess)
			last := msgs[len(msgs)-1]
			if last.Role != router.RoleUser {
				t.Errorf("tail role = %s, want user", last.Role)
			}
			if !strings.Contains(strings.ToLower(last.Content), tt.contains) {
				t.Errorf("tail = %q, want it to mention %q", last.Content, tt.contains)
			}
		})
	}
}

func TestBuildMessages_HistoryWindow(t *testing.T) {
	t.Parallel()

	var history []profile.Turn
	for i := 0; i < 20; i++ {
		history = append(history, profile.Turn{Role: profile.RoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	msgs := convo.BuildMessages("SYSTEM", history, session.Context{UserText: "latest"})

	// System + window + live tail.
	if len(msgs) != 10 {
		t.Fatalf("got %d messages, want 10", len(msgs))
	}
	if msgs[1].Content != "turn 12" {
		t.Errorf("window starts at %q, want the newest eight entries", msgs[1].Content)
	}
	if msgs[8].Content != "turn 19" {
		t.Errorf("window ends at %q, want turn 19", msgs[8].Content)
	}
}
