package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

// eventColumns is the ordered list of columns selected in event queries.
// Must match the scan order in scanEvent.
const eventColumns = `id, created_at, updated_at, owner_id, name, localization, description,
	fixed_start, fixed_end, actual_start, actual_end, max_participants, classification,
	access, state, invite_token, invite_code, photo_ref, photo_blur_hash`

// scanEvent scans a sql.Row (or sql.Rows via its Scan method) into a domain.Event.
// CollaboratorIDs are filled separately by attachCollaborators.
func scanEvent(scanner interface{ Scan(dest ...any) error }) (*domain.Event, error) {
	var e domain.Event

	var (
		createdAt     string
		updatedAt     string
		fixedStart    string
		fixedEnd      string
		actualStart   sql.NullString
		actualEnd     sql.NullString
		access        string
		state         string
		inviteToken   sql.NullString
		inviteCode    sql.NullString
		photoRef      sql.NullString
		photoBlurHash sql.NullString
	)

	err := scanner.Scan(
		&e.ID,
		&createdAt,
		&updatedAt,
		&e.OwnerID,
		&e.Name,
		&e.Localization,
		&e.Description,
		&fixedStart,
		&fixedEnd,
		&actualStart,
		&actualEnd,
		&e.MaxParticipants,
		&e.Classification,
		&access,
		&state,
		&inviteToken,
		&inviteCode,
		&photoRef,
		&photoBlurHash,
	)
	if err != nil {
		return nil, err
	}

	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if e.FixedStart, err = parseTime(fixedStart); err != nil {
		return nil, err
	}
	if e.FixedEnd, err = parseTime(fixedEnd); err != nil {
		return nil, err
	}
	if e.ActualStart, err = parseNullableTime(actualStart); err != nil {
		return nil, err
	}
	if e.ActualEnd, err = parseNullableTime(actualEnd); err != nil {
		return nil, err
	}

	e.Access = domain.AccessMode(access)
	e.State = domain.EventState(state)
	e.InviteToken = inviteToken.String
	e.InviteCode = inviteCode.String
	e.PhotoRef = photoRef.String
	e.PhotoBlurHash = photoBlurHash.String
	e.CollaboratorIDs = []string{}

	return &e, nil
}

// CreateEvent inserts the event, its owner participant and the owner's first
// history entry in one transaction.
func (s *Store) CreateEvent(ctx context.Context, e *domain.Event, owner store.NewParticipant) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID,
			formatTime(e.CreatedAt),
			formatTime(e.UpdatedAt),
			e.OwnerID,
			e.Name,
			e.Localization,
			e.Description,
			formatTime(e.FixedStart),
			formatTime(e.FixedEnd),
			nullTimeString(e.ActualStart),
			nullTimeString(e.ActualEnd),
			e.MaxParticipants,
			e.Classification,
			string(e.Access),
			string(e.State),
			nullString(e.InviteToken),
			nullString(e.InviteCode),
			nullString(e.PhotoRef),
			nullString(e.PhotoBlurHash),
		)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if err != nil {
			return err
		}
		return insertParticipant(ctx, tx, owner)
	})
}

func (s *Store) getEventWhere(ctx context.Context, where string, arg any) (*domain.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE `+where, arg)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachCollaborators(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetEvent retrieves an event by ID.
// Returns store.ErrNotFound if the event does not exist.
func (s *Store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return s.getEventWhere(ctx, "id = ?", id)
}

// GetEventByInviteToken retrieves the event holding token.
func (s *Store) GetEventByInviteToken(ctx context.Context, token string) (*domain.Event, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	return s.getEventWhere(ctx, "invite_token = ?", token)
}

// GetEventByInviteCode retrieves the event holding code.
func (s *Store) GetEventByInviteCode(ctx context.Context, code string) (*domain.Event, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	return s.getEventWhere(ctx, "invite_code = ?", code)
}

// ListEvents returns every event in insertion order.
func (s *Store) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY rowid`)
}

// ListEventsForUser returns events userID owns or participates in, limited to states.
func (s *Store) ListEventsForUser(ctx context.Context, userID string, states ...domain.EventState) ([]*domain.Event, error) {
	args := []any{userID, userID}
	args = append(args, stateArgs(states)...)
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE (owner_id = ? OR id IN (SELECT event_id FROM participants WHERE user_id = ?))
		  AND state IN (`+placeholders(len(states))+`)
		ORDER BY rowid`, args...)
}

// ListPublicEvents returns PUBLIC events in any of states.
func (s *Store) ListPublicEvents(ctx context.Context, states ...domain.EventState) ([]*domain.Event, error) {
	args := append([]any{string(domain.AccessPublic)}, stateArgs(states)...)
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE access = ? AND state IN (`+placeholders(len(states))+`)
		ORDER BY rowid`, args...)
}

func stateArgs(states []domain.EventState) []any {
	args := make([]any, len(states))
	for i, st := range states {
		args[i] = string(st)
	}
	return args
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachCollaborators(ctx, events...); err != nil {
		return nil, err
	}
	return events, nil
}

// attachCollaborators fills CollaboratorIDs from the participant flags.
func (s *Store) attachCollaborators(ctx context.Context, events ...*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Event, len(events))
	args := make([]any, 0, len(events))
	for _, e := range events {
		byID[e.ID] = e
		args = append(args, e.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, user_id FROM participants
		WHERE is_collaborator = 1 AND event_id IN (`+placeholders(len(args))+`)
		ORDER BY rowid`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var eventID, userID string
		if err := rows.Scan(&eventID, &userID); err != nil {
			return err
		}
		if e := byID[eventID]; e != nil {
			e.CollaboratorIDs = append(e.CollaboratorIDs, userID)
		}
	}
	return rows.Err()
}

// ListInviteCodes returns every assigned invite code.
func (s *Store) ListInviteCodes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT invite_code FROM events WHERE invite_code IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes[code] = struct{}{}
	}
	return codes, rows.Err()
}

// UpdateEvent rewrites the editable fields and the owner. State, actual
// timestamps, invite material and photo are left alone.
func (s *Store) UpdateEvent(ctx context.Context, e *domain.Event, newOwner *store.NewParticipant) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if newOwner != nil {
			if err := insertParticipant(ctx, tx, *newOwner); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE events SET
				updated_at = ?, owner_id = ?, name = ?, localization = ?, description = ?,
				fixed_start = ?, fixed_end = ?, max_participants = ?, classification = ?, access = ?
			WHERE id = ?`,
			formatTime(e.UpdatedAt),
			e.OwnerID,
			e.Name,
			e.Localization,
			e.Description,
			formatTime(e.FixedStart),
			formatTime(e.FixedEnd),
			e.MaxParticipants,
			e.Classification,
			string(e.Access),
			e.ID,
		)
		if err != nil {
			return err
		}
		return expectOneRow(res)
	})
}

// TransitionEvent writes state and actual timestamps if the row is still in from.
func (s *Store) TransitionEvent(ctx context.Context, e *domain.Event, from domain.EventState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET state = ?, actual_start = ?, actual_end = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		string(e.State),
		nullTimeString(e.ActualStart),
		nullTimeString(e.ActualEnd),
		formatTime(e.UpdatedAt),
		e.ID,
		string(from),
	)
	if err != nil {
		return err
	}

	err = expectOneRow(res)
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, e.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrStateChanged
}

// SetInviteMaterial assigns token and code unless the event already has a
// pair, then returns the stored pair. A code collision with another event
// yields store.ErrAlreadyExists.
func (s *Store) SetInviteMaterial(ctx context.Context, eventID, token, code string, now time.Time) (string, string, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET invite_token = ?, invite_code = ?, updated_at = ?
		WHERE id = ? AND invite_token IS NULL`,
		token, code, formatTime(now), eventID,
	)
	if isUniqueViolation(err) {
		return "", "", store.ErrAlreadyExists
	}
	if err != nil {
		return "", "", err
	}

	var storedToken, storedCode sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT invite_token, invite_code FROM events WHERE id = ?`, eventID,
	).Scan(&storedToken, &storedCode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", store.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return storedToken.String, storedCode.String, nil
}

// SetEventPhoto records the blob reference and placeholder hash.
func (s *Store) SetEventPhoto(ctx context.Context, eventID, ref, blurHash string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET photo_ref = ?, photo_blur_hash = ?, updated_at = ? WHERE id = ?`,
		nullString(ref), nullString(blurHash), formatTime(now), eventID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// DeleteEvent removes the event. Participants and their history cascade.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
