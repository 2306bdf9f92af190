package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"backend/internal/config"
)

// productURLFormat is where a recommendation badge links to. The UTM params
// attribute marketplace visits to chat recommendations.
const productURLFormat = "/marketplace/product/%s?utm_source=chat&utm_medium=cta&utm_campaign=ai_recs"

// shortDescLimit caps the description shown on a recommendation card.
const shortDescLimit = 180

// Hit is one recommended product as sent to the chat client.
type Hit struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	ShortDesc string   `json:"short_desc"`
	Slug      string   `json:"slug"`
	URL       string   `json:"url"`
	Image     *string  `json:"image"`
	Rating    *float64 `json:"rating"`
	Stock     *float64 `json:"stock"`
	Score     float64  `json:"score"`
	Badges    []string `json:"badges"`
}

// Service turns free-text queries into ranked product hits.
type Service struct {
	embedder Embedder
	store    VectorSearcher
	cfg      config.SearchConfig
}

// NewService creates a search service.
func NewService(embedder Embedder, store VectorSearcher, cfg config.SearchConfig) *Service {
	return &Service{embedder: embedder, store: store, cfg: cfg}
}

// Recommend runs a plain semantic search with the configured defaults. The
// chat relay calls this.
func (s *Service) Recommend(ctx context.Context, query string) ([]Hit, error) {
	return s.Search(ctx, query, Filters{}, 0, 0)
}

// Search embeds the query, fetches a candidate pool and returns at most
// limit hits at or above minScore, best first. Zero limit/minScore fall back
// to the configured defaults.
func (s *Service) Search(ctx context.Context, query string, filters Filters, limit int, minScore float64) ([]Hit, error) {
	if limit <= 0 {
		limit = s.cfg.Limit
	}
	if minScore <= 0 {
		minScore = s.cfg.MinScore
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := s.store.Search(ctx, embedding, filters, s.cfg.NumCandidates)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, limit)
	for _, c := range candidates {
		if c.Score < minScore {
			// Candidates arrive best-first, so everything after this is
			// below threshold too.
			break
		}
		// A product without a slug has no landing page; recommending it
		// would hand the model a dead link to hallucinate around.
		if strings.TrimSpace(c.Waste.Slug) == "" {
			continue
		}
		hits = append(hits, mapHit(c))
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// mapHit shapes a scored waste into the client-facing card.
func mapHit(c ScoredWaste) Hit {
	w := c.Waste
	hit := Hit{
		ID:        w.ID,
		Title:     w.Name,
		ShortDesc: shorten(w.Description),
		Slug:      w.Slug,
		URL:       fmt.Sprintf(productURLFormat, url.PathEscape(w.Slug)),
		Rating:    w.AverageRating,
		Score:     c.Score,
		Badges:    badges(w.Species, w.UseCases),
	}
	if len(w.ImageURLs) > 0 {
		img := w.ImageURLs[0]
		hit.Image = &img
	}
	stock := w.StockTotal
	hit.Stock = &stock
	return hit
}

// shorten truncates to the card limit on a rune boundary with a trailing
// ellipsis.
func shorten(desc string) string {
	runes := []rune(desc)
	if len(runes) <= shortDescLimit {
		return desc
	}
	return string(runes[:shortDescLimit]) + "..."
}

// badges builds the card badges: one species badge plus the use cases.
func badges(species, useCases []string) []string {
	out := make([]string, 0, 1+len(useCases))
	if len(species) > 0 {
		out = append(out, "Cocok untuk "+strings.Join(species, ", "))
	}
	out = append(out, useCases...)
	return out
}
