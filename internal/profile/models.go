package profile

import "time"

// Mode is the coarse audience category governing tone and reply length.
type Mode string

const (
	ModeChild Mode = "child"
	ModeTeen  Mode = "teen"
	ModeAdult Mode = "adult"
)

// ValidMode reports whether s names a known mode.
func ValidMode(s string) bool {
	switch Mode(s) {
	case ModeChild, ModeTeen, ModeAdult:
		return true
	}
	return false
}

// ModeForAge derives the audience mode from a learner's age.
// An unknown age (zero) defaults to child.
func ModeForAge(age int) Mode {
	switch {
	case age >= 18:
		return ModeAdult
	case age >= 13:
		return ModeTeen
	default:
		return ModeChild
	}
}

// Turn roles as stored in the turns table.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryCap is the maximum number of turns retained per learner.
// AppendTurn drops the oldest rows beyond this cap.
const HistoryCap = 20

// Defaults applied when a profile is created lazily on first contact.
const (
	DefaultName = "Guest"
	DefaultAge  = 5
	DefaultLang = "en"
)

// Profile is the durable per-learner record. Name and Age use zero values
// to mean "not yet learned"; DisplayName and AgeOrDefault supply the
// first-contact defaults for prompt substitution.
type Profile struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Age       int       `db:"age" json:"age"`
	Lang      string    `db:"lang" json:"lang"`
	Mode      Mode      `db:"mode" json:"mode"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Default returns an in-memory profile with first-contact defaults,
// used both on lazy creation and when the store is unavailable.
func Default(userID string) *Profile {
	return &Profile{
		UserID: userID,
		Lang:   DefaultLang,
		Mode:   ModeChild,
	}
}

// KnownName reports whether the learner's name has been learned.
func (p *Profile) KnownName() bool { return p.Name != "" }

// KnownAge reports whether the learner's age has been learned.
func (p *Profile) KnownAge() bool { return p.Age > 0 }

// DisplayName returns the learner's name, or the guest default.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return DefaultName
}

// AgeOrDefault returns the learner's age, or the first-contact default.
func (p *Profile) AgeOrDefault() int {
	if p.Age > 0 {
		return p.Age
	}
	return DefaultAge
}

// Turn is one stored utterance, either the learner's or the coach's.
type Turn struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
