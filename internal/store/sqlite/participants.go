package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

// participantColumns is the ordered list of columns selected in participant queries.
// Must match the scan order in scanParticipant.
const participantColumns = `id, created_at, updated_at, event_id, user_id, status, is_collaborator, check_in_code`

// scanParticipant scans a sql.Row (or sql.Rows via its Scan method) into a domain.Participant.
func scanParticipant(scanner interface{ Scan(dest ...any) error }) (*domain.Participant, error) {
	var (
		p           domain.Participant
		createdAt   string
		updatedAt   string
		status      string
		isCollab    int
		checkInCode sql.NullString
	)

	err := scanner.Scan(&p.ID, &createdAt, &updatedAt, &p.EventID, &p.UserID, &status, &isCollab, &checkInCode)
	if err != nil {
		return nil, err
	}

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.ParticipantStatus(status)
	p.IsCollaborator = isCollab == 1
	p.CheckInCode = checkInCode.String
	return &p, nil
}

// insertParticipant writes a participant and its first history entry inside tx.
func insertParticipant(ctx context.Context, tx *sql.Tx, np store.NewParticipant) error {
	p := np.Participant
	_, err := tx.ExecContext(ctx, `
		INSERT INTO participants (`+participantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		p.EventID,
		p.UserID,
		string(p.Status),
		boolToInt(p.IsCollaborator),
		nullString(p.CheckInCode),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if np.History == nil {
		return nil
	}
	return insertHistory(ctx, tx, np.History)
}

func insertHistory(ctx context.Context, tx *sql.Tx, h *domain.HistoryEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO participant_history (id, participant_id, status, at) VALUES (?, ?, ?, ?)`,
		h.ID, h.ParticipantID, string(h.Status), formatTime(h.At),
	)
	return err
}

// CreateParticipant inserts a participant and its history entry. When
// maxParticipants > 0 and the event already holds that many participants the
// insert is refused with store.ErrFull.
func (s *Store) CreateParticipant(ctx context.Context, np store.NewParticipant, maxParticipants int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if maxParticipants > 0 {
			var count int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM participants WHERE event_id = ?`, np.Participant.EventID,
			).Scan(&count)
			if err != nil {
				return err
			}
			if count >= maxParticipants {
				return store.ErrFull
			}
		}
		return insertParticipant(ctx, tx, np)
	})
}

// GetParticipant retrieves a participant by ID.
// Returns store.ErrNotFound if the participant does not exist.
func (s *Store) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = ?`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// GetParticipantByEventAndUser retrieves the membership of userID in eventID.
func (s *Store) GetParticipantByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE event_id = ? AND user_id = ?`, eventID, userID)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// ListParticipants returns the participants of an event in join order.
func (s *Store) ListParticipants(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE event_id = ? ORDER BY rowid`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetCollaborator flips the collaborator flag.
func (s *Store) SetCollaborator(ctx context.Context, participantID string, isCollaborator bool, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE participants SET is_collaborator = ?, updated_at = ? WHERE id = ?`,
		boolToInt(isCollaborator), formatTime(now), participantID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// UpdateStatus sets the cached status and appends the history entry in one transaction.
func (s *Store) UpdateStatus(ctx context.Context, participantID string, entry *domain.HistoryEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE participants SET status = ?, updated_at = ? WHERE id = ?`,
			string(entry.Status), formatTime(entry.At), participantID,
		)
		if err != nil {
			return err
		}
		if err := expectOneRow(res); err != nil {
			return err
		}
		return insertHistory(ctx, tx, entry)
	})
}

// SetCheckInCode stores code, replacing any previously issued one.
func (s *Store) SetCheckInCode(ctx context.Context, participantID, code string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE participants SET check_in_code = ?, updated_at = ? WHERE id = ?`,
		nullString(code), formatTime(now), participantID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// RecordCheckIn marks the participant PRESENT and appends entry, provided the
// participant is not present yet and its stored code equals code. When the
// condition fails nothing is written and store.ErrStateChanged is returned.
func (s *Store) RecordCheckIn(ctx context.Context, participantID, code string, entry *domain.HistoryEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE participants SET status = ?, updated_at = ?
			WHERE id = ? AND status <> ? AND check_in_code = ?`,
			string(domain.StatusPresent), formatTime(entry.At),
			participantID, string(domain.StatusPresent), code,
		)
		if err != nil {
			return err
		}
		if err := expectOneRow(res); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.ErrStateChanged
			}
			return err
		}
		return insertHistory(ctx, tx, entry)
	})
}

// DeleteParticipant removes a participant. Its history cascades.
func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM participants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// ListHistory returns a participant's status history, oldest first.
func (s *Store) ListHistory(ctx context.Context, participantID string) ([]*domain.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, status, at FROM participant_history
		WHERE participant_id = ? ORDER BY rowid`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.HistoryEntry
	for rows.Next() {
		var (
			h      domain.HistoryEntry
			status string
			at     string
		)
		if err := rows.Scan(&h.ID, &h.ParticipantID, &status, &at); err != nil {
			return nil, err
		}
		h.Status = domain.ParticipantStatus(status)
		if h.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}
