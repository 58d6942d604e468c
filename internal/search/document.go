// Package search provides full-text search over events using Bleve.
package search

import (
	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/normalize"
)

// Document is the indexed form of an event.
//
// Text fields are folded before indexing so matching ignores case and accents.
// The display copies are stored unfolded for hits.
type Document struct {
	ID           string
	Name         string
	Localization string
	Description  string
	Access       domain.AccessMode
	State        domain.EventState
	FixedStart   int64 // Unix millis

	DisplayName         string
	DisplayLocalization string
}

// NewDocument builds the index document for e.
func NewDocument(e *domain.Event) *Document {
	return &Document{
		ID:                  e.ID,
		Name:                normalize.Fold(e.Name),
		Localization:        normalize.Fold(e.Localization),
		Description:         normalize.Fold(e.Description),
		Access:              e.Access,
		State:               e.State,
		FixedStart:          e.FixedStart.UnixMilli(),
		DisplayName:         e.Name,
		DisplayLocalization: e.Localization,
	}
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":           d.ID,
		"name":         d.Name,
		"access":       string(d.Access),
		"state":        string(d.State),
		"fixed_start":  d.FixedStart,
		"display_name": d.DisplayName,
	}
	if d.Localization != "" {
		m["localization"] = d.Localization
		m["display_localization"] = d.DisplayLocalization
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	return m
}
