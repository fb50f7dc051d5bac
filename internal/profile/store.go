package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the persistence operations the orchestrator relies on.
// All methods accept a context for cancellation and timeouts. Callers are
// expected to treat errors as soft failures: a broken store must never
// block a conversation turn.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetOrCreate loads the profile for userID, creating it with
	// first-contact defaults if it does not exist yet.
	GetOrCreate(ctx context.Context, userID string) (*Profile, error)

	// Update overwrites the mutable fields of an existing profile.
	// Last write wins; there is no merge logic.
	Update(ctx context.Context, p *Profile) error

	// AppendTurn records one utterance and trims history to HistoryCap.
	AppendTurn(ctx context.Context, userID, role, content string) error

	// RecentTurns returns up to limit turns in chronological order.
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)

	// AllProfiles returns every stored profile.
	AllProfiles(ctx context.Context) ([]Profile, error)

	// Reset deletes a learner's profile and history.
	Reset(ctx context.Context, userID string) error

	// RunMaintenance performs periodic database upkeep: a global history
	// trim followed by VACUUM.
	RunMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) GetOrCreate(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var p Profile
	query := `SELECT user_id, name, age, lang, mode, notes, created_at, updated_at
	          FROM profiles WHERE user_id = ?`
	err := s.db.GetContext(ctx, &p, query, userID)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error loading profile", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to load profile %q: %w", userID, err)
	}

	created := Default(userID)
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	insert := `INSERT INTO profiles (user_id, name, age, lang, mode, notes, created_at, updated_at)
	           VALUES (:user_id, :name, :age, :lang, :mode, :notes, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, insert, created); err != nil {
		s.logger.ErrorContext(ctx, "Error creating profile", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to create profile %q: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Profile created", "user_id", userID)
	return created, nil
}

func (s *sqlxStore) Update(ctx context.Context, p *Profile) error {
	if p == nil {
		return fmt.Errorf("cannot update nil profile")
	}
	if p.UserID == "" {
		return fmt.Errorf("profile must have a user_id")
	}

	p.UpdatedAt = time.Now().UTC()

	query := `UPDATE profiles SET
	              name = :name,
	              age = :age,
	              lang = :lang,
	              mode = :mode,
	              notes = :notes,
	              updated_at = :updated_at
	          WHERE user_id = :user_id`
	result, err := s.db.NamedExecContext(ctx, query, p)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating profile", "user_id", p.UserID, "error", err)
		return fmt.Errorf("failed to update profile %q: %w", p.UserID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		s.logger.WarnContext(ctx, "Update matched no profile row", "user_id", p.UserID)
	}

	s.logger.DebugContext(ctx, "Profile updated", "user_id", p.UserID)
	return nil
}

func (s *sqlxStore) AppendTurn(ctx context.Context, userID, role, content string) error {
	if userID == "" {
		return fmt.Errorf("turn must have a user_id")
	}
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("invalid turn role %q", role)
	}
	if content == "" {
		return fmt.Errorf("turn must have non-empty content")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for turn append", "user_id", userID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	now := time.Now().UTC()
	insert := `INSERT INTO turns (user_id, role, content, created_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, userID, role, content, now); err != nil {
		s.logger.ErrorContext(ctx, "Error saving turn", "user_id", userID, "role", role, "error", err)
		return fmt.Errorf("failed to save turn for %q: %w", userID, err)
	}

	// Keep only the most recent HistoryCap rows per learner.
	trim := `DELETE FROM turns
	         WHERE user_id = ?
	           AND id NOT IN (SELECT id FROM turns WHERE user_id = ? ORDER BY id DESC LIMIT ?)`
	if _, err := tx.ExecContext(ctx, trim, userID, userID, HistoryCap); err != nil {
		s.logger.ErrorContext(ctx, "Error trimming turn history", "user_id", userID, "error", err)
		return fmt.Errorf("failed to trim history for %q: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit turn append", "user_id", userID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Turn appended", "user_id", userID, "role", role)
	return nil
}

func (s *sqlxStore) RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}
	if limit <= 0 || limit > HistoryCap {
		limit = HistoryCap
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var turns []Turn
	query := `SELECT id, user_id, role, content, created_at
	          FROM turns
	          WHERE user_id = ?
	          ORDER BY id DESC
	          LIMIT ?`
	if err := s.db.SelectContext(ctx, &turns, query, userID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error loading recent turns", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to load turns for %q: %w", userID, err)
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *sqlxStore) AllProfiles(ctx context.Context) ([]Profile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profiles []Profile
	query := `SELECT user_id, name, age, lang, mode, notes, created_at, updated_at
	          FROM profiles ORDER BY user_id`
	if err := s.db.SelectContext(ctx, &profiles, query); err != nil {
		s.logger.ErrorContext(ctx, "Error loading all profiles", "error", err)
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return profiles, nil
}

func (s *sqlxStore) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for reset: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete turns for %q: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete profile %q: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Profile reset", "user_id", userID)
	return nil
}

func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance")

	// Re-trim every learner's history; AppendTurn normally keeps the cap,
	// but rows written around failures can leave stragglers.
	trim := `DELETE FROM turns
	         WHERE id NOT IN (SELECT t2.id FROM turns t2
	                          WHERE t2.user_id = turns.user_id
	                          ORDER BY t2.id DESC LIMIT ?)`
	if res, err := s.db.ExecContext(ctx, trim, HistoryCap); err != nil {
		s.logger.ErrorContext(ctx, "History trim failed", "error", err)
		return fmt.Errorf("failed to trim turn history: %w", err)
	} else if trimmed, err := res.RowsAffected(); err == nil && trimmed > 0 {
		s.logger.InfoContext(ctx, "Trimmed excess turn history", "rows", trimmed)
	}

	// VACUUM must run outside a transaction in SQLite.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}
