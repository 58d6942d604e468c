package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

// Transition is one time-driven state change computed by Sweep.
type Transition struct {
	Event *domain.Event
	From  domain.EventState
}

// Sweep computes the transitions due at now. It does not modify events;
// each Transition carries an updated copy. Events with a corrupt state or
// schedule are reported in errs and skipped. Running Sweep on its own output
// at the same now yields nothing.
func Sweep(now time.Time, events []*domain.Event) (due []Transition, errs []error) {
	for _, e := range events {
		if e == nil {
			continue
		}
		if !e.State.Valid() {
			errs = append(errs, fmt.Errorf("event %s: unknown state %q", e.ID, e.State))
			continue
		}
		if e.State.IsTerminal() {
			continue
		}
		if !e.FixedEnd.After(e.FixedStart) {
			errs = append(errs, fmt.Errorf("event %s: fixed_end is not after fixed_start", e.ID))
			continue
		}

		next := *e
		next.CollaboratorIDs = append([]string(nil), e.CollaboratorIDs...)
		if next.AdvanceSchedule(now) {
			due = append(due, Transition{Event: &next, From: e.State})
		}
	}
	return due, errs
}

// SweepResult summarizes one RunSweep pass.
type SweepResult struct {
	Checked  int
	Advanced int
	Skipped  int // lost a race with a concurrent transition
	Failed   int
}

// RunSweep loads every event, applies the transitions due now and persists
// each one independently. Per-event failures are logged and counted, never
// returned; only failing to load the events is an error.
func (s *EventService) RunSweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if err := ctx.Err(); err != nil {
		return res, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return res, fmt.Errorf("list events: %w", err)
	}
	res.Checked = len(events)

	now := s.now()
	due, errs := Sweep(now, events)
	for _, err := range errs {
		res.Failed++
		s.log.WithError(err).Warn("sweep skipped event")
	}

	for _, t := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		l := s.log.WithEvent(t.Event.ID)
		err := s.store.TransitionEvent(ctx, t.Event, t.From)
		switch {
		case errors.Is(err, store.ErrStateChanged), errors.Is(err, store.ErrNotFound):
			res.Skipped++
			l.Debug("sweep transition superseded", "from", t.From)
			continue
		case err != nil:
			res.Failed++
			l.WithError(err).Warn("sweep transition failed", "from", t.From, "to", t.Event.State)
			continue
		}

		res.Advanced++
		s.reindex(ctx, t.Event)
		l.Info("event advanced by schedule", "from", t.From, "to", t.Event.State)
	}

	if res.Advanced > 0 || res.Failed > 0 {
		s.log.Info("sweep completed",
			"checked", res.Checked,
			"advanced", res.Advanced,
			"skipped", res.Skipped,
			"failed", res.Failed,
		)
	} else {
		s.log.Debug("sweep completed", "checked", res.Checked)
	}
	return res, nil
}
