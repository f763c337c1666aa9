package mission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elliotttmiller/sentinel/internal/database"
	"github.com/elliotttmiller/sentinel/internal/types"
)

const missionColumns = `id, prompt, current_prompt, agent_type, status, progress,
	attempt_count, result, error_message, created_at, started_at, completed_at, updated_at`

// SQLiteStore is the durable MissionStore backed by internal/database.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a store over an opened, migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists a new mission.
func (s *SQLiteStore) Save(ctx context.Context, m *Mission) error {
	if err := m.Validate(); err != nil {
		return err
	}

	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO missions (`+missionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Prompt, m.CurrentPrompt, m.AgentType, m.Status.String(), m.Progress,
		m.AttemptCount, nullString(m.Result), nullString(m.ErrorMessage),
		m.CreatedAt, nullTime(m.StartedAt), nullTime(m.CompletedAt), m.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return types.NewError(types.MISSION_INVALID, "mission "+m.ID+" already exists")
		}
		return types.WrapError(types.DB_QUERY_FAILED, "save mission", err)
	}
	return nil
}

// Get retrieves a mission by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Mission, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE id = ?`, id)
	return scanMission(row)
}

// List retrieves missions matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter *Filter) ([]*Mission, error) {
	where, args := buildWhere(filter)

	query := `SELECT ` + missionColumns + ` FROM missions` + where + ` ORDER BY created_at DESC`
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "list missions", err)
	}
	defer rows.Close()

	var out []*Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a mission and applies the given fields. The read
// and write happen inside one transaction so concurrent transitions cannot
// interleave.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status Status, fields StatusFields) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "begin status update", err)
	}
	defer tx.Rollback()

	m, err := scanMission(tx.QueryRowContext(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE id = ?`, id))
	if err != nil {
		return err
	}
	if m.Status.IsTerminal() {
		return types.NewError(types.MISSION_TERMINAL,
			"mission "+id+" is "+m.Status.String()+" and cannot be mutated")
	}
	if !m.Status.CanTransitionTo(status) {
		return types.NewError(types.MISSION_INVALID,
			"invalid transition "+m.Status.String()+" -> "+status.String())
	}

	applyStatusFields(m, status, fields)

	_, err = tx.ExecContext(ctx, `
		UPDATE missions SET
			current_prompt = ?, status = ?, progress = ?, attempt_count = ?,
			result = ?, error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		m.CurrentPrompt, m.Status.String(), m.Progress, m.AttemptCount,
		nullString(m.Result), nullString(m.ErrorMessage),
		nullTime(m.StartedAt), nullTime(m.CompletedAt), m.UpdatedAt, id,
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "update mission status", err)
	}
	if err := tx.Commit(); err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "commit status update", err)
	}
	return nil
}

// UpdateProgress updates only the progress field of a non-terminal mission.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	res, err := s.db.Conn().ExecContext(ctx, `
		UPDATE missions SET progress = ?, updated_at = ?
		WHERE id = ? AND status NOT IN ('completed', 'failed', 'cancelled')`,
		progress, time.Now().UTC(), id,
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "update mission progress", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "update mission progress", err)
	}
	if affected == 0 {
		// Either the mission is missing or it is terminal.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return types.NewError(types.MISSION_TERMINAL,
			"mission "+id+" is terminal and cannot be mutated")
	}
	return nil
}

// GetActive retrieves all missions in a non-terminal state.
func (s *SQLiteStore) GetActive(ctx context.Context) ([]*Mission, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT `+missionColumns+` FROM missions
		WHERE status IN ('pending', 'running', 'healing')
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "get active missions", err)
	}
	defer rows.Close()

	var out []*Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of missions matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter *Filter) (int, error) {
	where, args := buildWhere(filter)

	var n int
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM missions`+where, args...).Scan(&n)
	if err != nil {
		return 0, types.WrapError(types.DB_QUERY_FAILED, "count missions", err)
	}
	return n, nil
}

// Delete removes a terminal mission.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `
		DELETE FROM missions
		WHERE id = ? AND status IN ('completed', 'failed', 'cancelled')`, id)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "delete mission", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "delete mission", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return types.NewError(types.MISSION_INVALID,
			"mission "+id+" is not terminal; only terminal missions can be deleted")
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanMission.
type scanner interface {
	Scan(dest ...any) error
}

func scanMission(row scanner) (*Mission, error) {
	var (
		m            Mission
		status       string
		result       sql.NullString
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&m.ID, &m.Prompt, &m.CurrentPrompt, &m.AgentType, &status, &m.Progress,
		&m.AttemptCount, &result, &errorMessage,
		&m.CreatedAt, &startedAt, &completedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewError(types.MISSION_NOT_FOUND, "mission not found")
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "scan mission", err)
	}

	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	m.Status = parsed

	if result.Valid {
		m.Result = &result.String
	}
	if errorMessage.Valid {
		m.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		m.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		m.CompletedAt = &t
	}
	return &m, nil
}

func buildWhere(filter *Filter) (string, []any) {
	if filter == nil {
		return "", nil
	}

	var clauses []string
	var args []any
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status.String())
	}
	if filter.AgentType != nil {
		clauses = append(clauses, "agent_type = ?")
		args = append(args, *filter.AgentType)
	}
	if filter.CreatedAfter != nil {
		clauses = append(clauses, "created_at > ?")
		args = append(args, *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, *filter.CreatedBefore)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

var _ MissionStore = (*SQLiteStore)(nil)
