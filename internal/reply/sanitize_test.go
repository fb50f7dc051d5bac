package reply_test

import (
	"strings"
	"testing"

	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/reply"
)

const testReask = "Let's try again. Ready?"

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		mode     profile.Mode
		expected string
	}{
		{
			name:     "Clean two-sentence reply passes through",
			raw:      "Great job counting! Can you find three red things?",
			mode:     profile.ModeChild,
			expected: "Great job counting! Can you find three red things?",
		},
		{
			name:     "Extra sentences are clamped to two",
			raw:      "Wow. You did it. That was amazing. What comes after four?",
			mode:     profile.ModeChild,
			expected: testReask,
		},
		{
			name:     "Clamp keeps reply when second sentence still asks",
			raw:      "Nice work with the letters. Can you say the sound of B? We will do more later.",
			mode:     profile.ModeChild,
			expected: "Nice work with the letters. Can you say the sound of B?",
		},
		{
			name:     "Missing question becomes the re-ask",
			raw:      "You are doing so well today.",
			mode:     profile.ModeChild,
			expected: testReask,
		},
		{
			name:     "Double question marks collapse to one",
			raw:      "Ready for the next one??",
			mode:     profile.ModeChild,
			expected: "Ready for the next one?",
		},
		{
			name:     "Question-exclamation run keeps the question",
			raw:      "Can you believe it?!",
			mode:     profile.ModeChild,
			expected: "Can you believe it?",
		},
		{
			name:     "Empty input becomes the re-ask",
			raw:      "   ",
			mode:     profile.ModeChild,
			expected: testReask,
		},
		{
			name:     "Only control tags becomes the re-ask",
			raw:      "[[CUE_WAVE]][[CUE_SMILE]]",
			mode:     profile.ModeChild,
			expected: testReask,
		},
		{
			name:     "No punctuation at all becomes the re-ask",
			raw:      "lets keep going together",
			mode:     profile.ModeChild,
			expected: testReask,
		},
		{
			name:     "Whitespace is normalized",
			raw:      "Good   try!\n\nWhat   letter comes next?",
			mode:     profile.ModeChild,
			expected: "Good try! What letter comes next?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reply.Sanitize(tt.raw, reply.Options{
				Mode:        tt.mode,
				SessionLang: "en",
				Reask:       testReask,
			})
			if got.Text != tt.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got.Text, tt.expected)
			}
		})
	}
}

func TestSanitize_WordBudget(t *testing.T) {
	t.Parallel()

	// One long sentence ending in a question: survives clamping and the
	// question check but blows the child budget.
	long := strings.Repeat("very ", 40) + "long question?"

	got := reply.Sanitize(long, reply.Options{Mode: profile.ModeChild, SessionLang: "en", Reask: testReask})
	if got.Text != testReask {
		t.Errorf("over-budget child reply = %q, want re-ask %q", got.Text, testReask)
	}

	// The same text fits nobody, but a moderate one fits an adult budget.
	moderate := strings.Repeat("word ", 40) + "still with me?"
	got = reply.Sanitize(moderate, reply.Options{Mode: profile.ModeAdult, SessionLang: "en", Reask: testReask})
	if got.Text == testReask {
		t.Errorf("adult reply of 43 words was replaced, want it kept")
	}
}

func TestSanitize_CueExtraction(t *testing.T) {
	t.Parallel()

	raw := "[[CUE_SMILE]]Great work! [[CUE_STAR]] Want another round?"
	got := reply.Sanitize(raw, reply.Options{Mode: profile.ModeChild, SessionLang: "en", Reask: testReask})

	if strings.Contains(got.Text, "[[") || strings.Contains(got.Text, "]]") {
		t.Errorf("cue tokens leaked into speech text: %q", got.Text)
	}
	if got.Text != "Great work! Want another round?" {
		t.Errorf("cleaned text = %q", got.Text)
	}
	if len(got.Cues) != 2 || got.Cues[0] != "CUE_SMILE" || got.Cues[1] != "CUE_STAR" {
		t.Errorf("cues = %v, want [CUE_SMILE CUE_STAR]", got.Cues)
	}
}

func TestExtractCues_Escalation(t *testing.T) {
	t.Parallel()

	text, cues := reply.ExtractCues("I hear you. [[ESCALATE_GROWNUP]] Can we find a grown-up together?")
	if strings.Contains(text, "ESCALATE_GROWNUP") {
		t.Errorf("escalation token left in text: %q", text)
	}
	if len(cues) != 1 || cues[0] != "ESCALATE_GROWNUP" {
		t.Errorf("cues = %v, want [ESCALATE_GROWNUP]", cues)
	}
}

func TestClampSentences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"Short stays whole", "One. Two?", 2, "One. Two?"},
		{"Third sentence dropped", "One. Two! Three?", 2, "One. Two!"},
		{"Decimal point is not a boundary", "Count to 3.5 with me. Then clap twice. Done?", 2, "Count to 3.5 with me. Then clap twice."},
		{"Unterminated tail counts as a sentence", "First. Second half still going", 2, "First. Second half still going"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := reply.ClampSentences(tt.input, tt.n); got != tt.expected {
				t.Errorf("ClampSentences(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		text        string
		sessionLang string
		expected    string
	}{
		{"Plain English", "What color is the sky?", "en", reply.LangEnglish},
		{"Vietnamese diacritics", "Bạn có muốn chơi không?", "en", reply.LangVietnamese},
		{"Vietnamese keyword as whole word", "chào! ready to play?", "en", reply.LangVietnamese},
		{"Keyword fragment inside English word does not trigger", "remember the theme?", "en", reply.LangEnglish},
		{"Session language fallback", "What should we do next?", "vi", reply.LangVietnamese},
		{"Unknown session language defaults to English", "What should we do next?", "", reply.LangEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := reply.DetectLanguage(tt.text, tt.sessionLang); got != tt.expected {
				t.Errorf("DetectLanguage(%q, %q) = %q, want %q", tt.text, tt.sessionLang, got, tt.expected)
			}
		})
	}
}
