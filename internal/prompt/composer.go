// Package prompt builds the system instruction sent to the model: static
// policy blocks plus a per-turn session context block.
package prompt

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/session"
)

// Composer assembles the instruction string for each turn. When a
// template path is configured, the file's contents replace the built-in
// policy blocks; the file is cached and re-read only when its
// modification time changes. A missing or unreadable file never fails a
// turn, it falls back to the built-in blocks.
type Composer struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	cached string
	mtime  time.Time
}

// NewComposer creates a Composer. path may be empty to use only the
// built-in policy blocks.
func NewComposer(path string, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Composer{
		path:   path,
		logger: logger.With("component", "composer"),
	}
}

// Compose returns the full system instruction for one turn: the base
// policy text, a session context block with substituted learner facts,
// and the live phase instruction.
func (c *Composer) Compose(p *profile.Profile, sess session.Context, instruction string) string {
	var b strings.Builder
	b.WriteString(c.basePrompt())

	objective := sess.Objective
	if objective == "" {
		objective = "gentle warm-up"
	}

	b.WriteString("\n\n---\nSESSION CONTEXT\n")
	fmt.Fprintf(&b, "Learner: %s\n", p.DisplayName())
	fmt.Fprintf(&b, "Age: %d\n", p.AgeOrDefault())
	fmt.Fprintf(&b, "Mode: %s\n", p.Mode)
	fmt.Fprintf(&b, "Objective: %s\n", objective)
	fmt.Fprintf(&b, "Preferred language: %s\n", p.Lang)

	if instruction != "" {
		b.WriteString("\nTHIS TURN\n")
		b.WriteString(instruction)
	}
	return b.String()
}

// basePrompt returns the cached template text, reloading it if the file
// changed, or the built-in policy blocks when no template is usable.
func (c *Composer) basePrompt() string {
	if c.path == "" {
		return builtinBlocks()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := os.Stat(c.path)
	if err != nil {
		if c.cached == "" {
			c.logger.Warn("Prompt template unavailable, using built-in blocks", "path", c.path, "error", err)
			return builtinBlocks()
		}
		return c.cached
	}

	if c.cached == "" || !st.ModTime().Equal(c.mtime) {
		raw, err := os.ReadFile(c.path)
		if err != nil {
			c.logger.Warn("Failed to read prompt template, using built-in blocks", "path", c.path, "error", err)
			if c.cached != "" {
				return c.cached
			}
			return builtinBlocks()
		}
		text := strings.TrimSpace(stripFrontMatter(string(raw)))
		if text == "" {
			return builtinBlocks()
		}
		c.cached = text
		c.mtime = st.ModTime()
		c.logger.Info("Prompt template loaded", "path", c.path)
	}
	return c.cached
}

func builtinBlocks() string {
	blocks := []string{
		CoachCore,
		EngagementRules,
		AssessmentFramework,
		SafetyRules,
		TurnRecipe,
		SilencePolicy,
	}
	return strings.Join(blocks, "\n\n")
}

// stripFrontMatter drops a leading YAML front-matter section delimited by
// "---" lines, commonly present in markdown prompt files.
func stripFrontMatter(s string) string {
	if !strings.HasPrefix(s, "---") {
		return s
	}
	end := strings.Index(s[3:], "\n---")
	if end == -1 {
		return s
	}
	rest := s[3+end+4:]
	return strings.TrimLeft(rest, "\r\n")
}
