package search

import (
	"context"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/normalize"
)

const (
	// DefaultLimit applies when Params.Limit is not positive.
	DefaultLimit = 20
	// MaxLimit caps Params.Limit.
	MaxLimit = 100
)

// Params configures a search.
type Params struct {
	Query string
	// Access and States restrict hits. Empty means no restriction.
	Access domain.AccessMode
	States []domain.EventState

	Limit  int
	Offset int
}

// PublicUpcoming returns params for joinable-or-running public events.
func PublicUpcoming(q string, limit int) Params {
	return Params{
		Query:  q,
		Access: domain.AccessPublic,
		States: []domain.EventState{domain.EventCreated, domain.EventActive},
		Limit:  limit,
	}
}

// Hit is one matched event.
type Hit struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Localization string            `json:"localization,omitempty"`
	State        domain.EventState `json:"state"`
	FixedStart   time.Time         `json:"fixed_start"`
	Score        float64           `json:"score"`
}

// Result is a page of hits.
type Result struct {
	Query string `json:"query"`
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// Search executes params against the index. An empty query lists every
// event passing the filters, earliest first.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	folded := normalize.Fold(params.Query)
	req := bleve.NewSearchRequestOptions(buildQuery(folded, params), limit, max(params.Offset, 0), false)
	if folded == "" {
		req.SortBy([]string{"fixed_start", "_id"})
	} else {
		req.SortBy([]string{"-_score", "fixed_start"})
	}
	req.Fields = []string{"display_name", "display_localization", "state", "fixed_start"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{
		Query: params.Query,
		Total: res.Total,
		Hits:  make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["display_name"].(string); ok {
			hit.Name = v
		}
		if v, ok := h.Fields["display_localization"].(string); ok {
			hit.Localization = v
		}
		if v, ok := h.Fields["state"].(string); ok {
			hit.State = domain.EventState(v)
		}
		if v, ok := h.Fields["fixed_start"].(float64); ok {
			hit.FixedStart = time.UnixMilli(int64(v)).UTC()
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// buildQuery combines the folded text query with the access and state filters.
func buildQuery(folded string, params Params) query.Query {
	var must []query.Query

	if folded != "" {
		name := bleve.NewMatchQuery(folded)
		name.SetField("name")
		name.SetBoost(3.0)

		loc := bleve.NewMatchQuery(folded)
		loc.SetField("localization")
		loc.SetBoost(1.5)

		desc := bleve.NewMatchQuery(folded)
		desc.SetField("description")

		fuzzy := bleve.NewFuzzyQuery(folded)
		fuzzy.SetField("name")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.8)

		text := []query.Query{name, loc, desc, fuzzy}
		if len(folded) >= 2 {
			prefix := bleve.NewPrefixQuery(folded)
			prefix.SetField("name")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}
		must = append(must, bleve.NewDisjunctionQuery(text...))
	}

	if params.Access != "" {
		tq := bleve.NewTermQuery(string(params.Access))
		tq.SetField("access")
		must = append(must, tq)
	}

	if len(params.States) > 0 {
		states := make([]query.Query, len(params.States))
		for i, st := range params.States {
			tq := bleve.NewTermQuery(string(st))
			tq.SetField("state")
			states[i] = tq
		}
		must = append(must, bleve.NewDisjunctionQuery(states...))
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}
