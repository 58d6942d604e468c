package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	domainerrors "github.com/eventsphere/eventsphere-server/internal/errors"
	"github.com/eventsphere/eventsphere-server/internal/media/images"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

// SetPhoto validates data as an image, stores it and points the event at it.
// The previous photo, if any, is deleted best effort.
func (s *EventService) SetPhoto(ctx context.Context, eventID, callerID string, data []byte) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.blobs == nil {
		return nil, domainerrors.Internal("photo storage is not configured")
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkPermission(e, callerID); err != nil {
		return nil, err
	}

	info, err := images.Inspect(data, s.photoMaxBytes)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInvalidArgument, "invalid photo")
	}

	ref, err := s.blobs.Store(ctx, data, info.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	l := s.log.WithEvent(e.ID)
	now := s.now()
	if err := s.store.SetEventPhoto(ctx, e.ID, ref, info.BlurHash, now); err != nil {
		if delErr := s.blobs.Delete(ctx, ref); delErr != nil {
			l.WithError(delErr).Warn("failed to delete orphaned photo", "photo_ref", ref)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("event not found")
		}
		return nil, fmt.Errorf("set event photo: %w", err)
	}

	previous := e.PhotoRef
	e.PhotoRef = ref
	e.PhotoBlurHash = info.BlurHash
	e.Touch(now)

	if previous != "" {
		if err := s.blobs.Delete(ctx, previous); err != nil {
			l.WithError(err).Warn("failed to delete previous photo", "photo_ref", previous)
		}
	}

	l.Info("event photo updated",
		"photo_ref", ref,
		"content_type", info.ContentType,
		"width", info.Width,
		"height", info.Height,
	)
	return e, nil
}

// GetPhoto returns the event photo and its content type.
func (s *EventService) GetPhoto(ctx context.Context, eventID string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, "", err
	}
	if e.PhotoRef == "" || s.blobs == nil {
		return nil, "", domainerrors.NotFound("event has no photo")
	}

	data, contentType, err := s.blobs.Get(ctx, e.PhotoRef)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", domainerrors.NotFound("event has no photo")
	}
	if err != nil {
		return nil, "", fmt.Errorf("get photo: %w", err)
	}
	return data, contentType, nil
}
