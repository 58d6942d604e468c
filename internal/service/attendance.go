package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eventsphere/eventsphere-server/internal/codegen"
	"github.com/eventsphere/eventsphere-server/internal/domain"
	domainerrors "github.com/eventsphere/eventsphere-server/internal/errors"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

// Limiter decides whether a keyed request may proceed.
// ratelimit.KeyedRateLimiter implements it.
type Limiter interface {
	Allow(key string) bool
}

type unlimited struct{}

func (unlimited) Allow(string) bool { return true }

// AttendanceService issues and redeems per-participant check-in codes.
type AttendanceService struct {
	base
	codes   codegen.Source
	limiter Limiter
}

// NewAttendanceService creates an attendance service. A nil source uses
// crypto/rand; a nil limiter disables redemption throttling.
func NewAttendanceService(st Store, codes codegen.Source, limiter Limiter, logger *slog.Logger) *AttendanceService {
	if codes == nil {
		codes = codegen.Crypto{}
	}
	if limiter == nil {
		limiter = unlimited{}
	}
	return &AttendanceService{base: newBase(st, nil, logger), codes: codes, limiter: limiter}
}

// IssueCheckInCode generates a fresh code for the participant, replacing any
// earlier one. The participant's event must be ACTIVE.
func (s *AttendanceService) IssueCheckInCode(ctx context.Context, participantID string) (*domain.CheckIn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.getParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, p)
}

// IssueCheckInCodeForUser is IssueCheckInCode addressed by event and user.
func (s *AttendanceService) IssueCheckInCodeForUser(ctx context.Context, eventID, userID string) (*domain.CheckIn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.findParticipant(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domainerrors.NotFound("user is not a participant")
	}
	return s.issue(ctx, p)
}

func (s *AttendanceService) issue(ctx context.Context, p *domain.Participant) (*domain.CheckIn, error) {
	e, err := s.getEvent(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	if e.State != domain.EventActive {
		return nil, domainerrors.InvalidState("check-in codes are only issued while the event is active")
	}
	if p.IsPresent() {
		return nil, domainerrors.AlreadyExists("participant is already present")
	}

	token, err := s.codes.CheckInToken()
	if err != nil {
		return nil, fmt.Errorf("generate check-in token: %w", err)
	}
	code := codegen.CheckInCode(p.ID, token)
	now := s.now()

	err = s.store.SetCheckInCode(ctx, p.ID, code, now)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("participant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("set check-in code: %w", err)
	}

	s.log.WithParticipant(e.ID, p.ID).Info("check-in code issued")
	return &domain.CheckIn{EventID: e.ID, ParticipantID: p.ID, Code: code, IssuedAt: now}, nil
}

// Redeem checks a scanned code in. The caller, identified by username, must
// manage the participant's event. Redemption is single use: a second scan
// fails with "already present".
func (s *AttendanceService) Redeem(ctx context.Context, code, callerUsername string) (*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.limiter.Allow(callerUsername) {
		s.log.Warn("check-in redemption throttled", "username", callerUsername)
		return nil, domainerrors.RateLimited("too many check-in attempts, slow down")
	}

	caller, err := s.store.GetUserByUsername(ctx, callerUsername)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	participantID, _, ok := codegen.ParseCheckInCode(code)
	if !ok {
		return nil, domainerrors.InvalidArgument("malformed check-in code")
	}
	p, err := s.getParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	e, err := s.getEvent(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	if err := checkPermission(e, caller.ID); err != nil {
		return nil, err
	}
	if e.State != domain.EventActive {
		return nil, domainerrors.InvalidState("check-in is only possible while the event is active")
	}
	if p.IsPresent() {
		return nil, domainerrors.AlreadyExists("participant is already present")
	}
	if p.CheckInCode == "" || subtle.ConstantTimeCompare([]byte(p.CheckInCode), []byte(code)) != 1 {
		return nil, domainerrors.InvalidArgument("check-in code does not match")
	}

	now := s.now()
	entry, err := newHistoryEntry(p.ID, domain.StatusPresent, now)
	if err != nil {
		return nil, err
	}

	l := s.log.WithParticipant(e.ID, p.ID)
	err = s.store.RecordCheckIn(ctx, p.ID, code, entry)
	if errors.Is(err, store.ErrStateChanged) {
		// Either a concurrent scan won or the code was reissued meanwhile.
		current, getErr := s.getParticipant(ctx, p.ID)
		if getErr == nil && current.IsPresent() {
			return nil, domainerrors.AlreadyExists("participant is already present")
		}
		return nil, domainerrors.InvalidArgument("check-in code does not match")
	}
	if err != nil {
		return nil, fmt.Errorf("record check-in: %w", err)
	}

	p.Status = domain.StatusPresent
	p.Touch(now)
	l.Info("participant checked in", "redeemed_by", caller.ID)
	return p, nil
}

// AttendanceReport splits the event's participants into present and absent.
func (s *AttendanceService) AttendanceReport(ctx context.Context, eventID, callerID string) (*domain.AttendanceReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkPermission(e, callerID); err != nil {
		return nil, err
	}

	participants, err := s.store.ListParticipants(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	userIDs := make([]string, len(participants))
	for i, p := range participants {
		userIDs[i] = p.UserID
	}
	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	report := &domain.AttendanceReport{
		EventID:   e.ID,
		EventName: e.Name,
		State:     e.State,
		Total:     len(participants),
		Present:   []domain.AttendanceRow{},
		Absent:    []domain.AttendanceRow{},
	}
	for _, p := range participants {
		row := domain.AttendanceRow{
			ParticipantID:  p.ID,
			UserID:         p.UserID,
			IsCollaborator: p.IsCollaborator,
			Status:         p.Status,
		}
		if u, ok := byID[p.UserID]; ok {
			row.Name = u.Name()
			row.Email = u.Email
		}
		if p.IsPresent() {
			report.Present = append(report.Present, row)
		} else {
			report.Absent = append(report.Absent, row)
		}
	}
	report.PresentCount = len(report.Present)
	report.AbsentCount = len(report.Absent)
	return report, nil
}
