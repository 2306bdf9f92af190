package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/catalog"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filters restrict a similarity search. All set fields must hold
// (conjunction); Tags and CategoryIDs match when the product carries any of
// the given values.
type Filters struct {
	Species     string
	UseCase     string
	Tags        []string
	CategoryIDs []string
}

// ScoredWaste is a similarity match with its cosine score in [0, 1]-ish
// range (negative scores are possible for opposed vectors and get filtered
// by the min-score threshold anyway).
type ScoredWaste struct {
	Waste catalog.FarmWaste
	Score float64
}

// VectorSearcher runs similarity queries over the waste vectors.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, filters Filters, candidatePool int) ([]ScoredWaste, error)
}

// PGVectorStore persists and searches passage vectors with pgvector.
type PGVectorStore struct {
	db *gorm.DB
}

// NewPGVectorStore creates the store and hooks waste deletion so vectors
// never outlive their product.
func NewPGVectorStore(db *gorm.DB, wastes *catalog.WasteService) *PGVectorStore {
	if wastes != nil {
		wastes.AddDeleteCascade(func(tx *gorm.DB, wasteID string) error {
			if err := tx.Where("waste_id = ?", wasteID).Delete(&WasteVector{}).Error; err != nil {
				return fmt.Errorf("delete waste vector: %w", err)
			}
			return nil
		})
	}
	return &PGVectorStore{db: db}
}

// Upsert stores a product's passage vector, replacing any previous one.
func (s *PGVectorStore) Upsert(ctx context.Context, wasteID string, embedding []float32) error {
	row := WasteVector{
		WasteID:   wasteID,
		Embedding: pgvector.NewVector(embedding),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "waste_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert waste vector: %w", err)
	}
	return nil
}

// MissingVectorIDs lists wastes that have no stored vector yet. The backfill
// tool uses it.
func (s *PGVectorStore) MissingVectorIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("farm_wastes").
		Select("farm_wastes.id").
		Joins("LEFT JOIN waste_vectors ON waste_vectors.waste_id = farm_wastes.id").
		Where("waste_vectors.waste_id IS NULL").
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("list missing vectors: %w", err)
	}
	return ids, nil
}

type scoredRow struct {
	catalog.FarmWaste
	Score float64
}

// Search returns up to candidatePool wastes ordered by cosine similarity to
// the query embedding. Score thresholds and final truncation are the
// caller's job.
func (s *PGVectorStore) Search(ctx context.Context, embedding []float32, filters Filters, candidatePool int) ([]ScoredWaste, error) {
	if candidatePool <= 0 {
		candidatePool = 150
	}
	vec := pgvector.NewVector(embedding)

	q := s.db.WithContext(ctx).
		Table("waste_vectors").
		Select("farm_wastes.*, 1 - (waste_vectors.embedding <=> ?) AS score", vec).
		Joins("JOIN farm_wastes ON farm_wastes.id = waste_vectors.waste_id")

	if filters.Species != "" {
		q = q.Where("farm_wastes.species @> ?", jsonArray(filters.Species))
	}
	if filters.UseCase != "" {
		q = q.Where("farm_wastes.use_cases @> ?", jsonArray(filters.UseCase))
	}
	if cond, args := anyOfJSON("farm_wastes.tags", filters.Tags); cond != "" {
		q = q.Where(cond, args...)
	}
	if cond, args := anyOfJSON("farm_wastes.category_ids", filters.CategoryIDs); cond != "" {
		q = q.Where(cond, args...)
	}

	var rows []scoredRow
	err := q.Clauses(orderByDistance(vec)).
		Limit(candidatePool).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]ScoredWaste, 0, len(rows))
	for _, r := range rows {
		out = append(out, ScoredWaste{Waste: r.FarmWaste, Score: r.Score})
	}
	return out, nil
}

func orderByDistance(vec pgvector.Vector) clause.OrderBy {
	return clause.OrderBy{
		Expression: clause.Expr{
			SQL:  "waste_vectors.embedding <=> ?",
			Vars: []interface{}{vec},
		},
	}
}

// jsonArray renders a one-element JSON array for a jsonb containment check.
func jsonArray(value string) string {
	b, _ := json.Marshal([]string{value})
	return string(b)
}

// anyOfJSON builds an OR of containment checks: the column must hold at
// least one of the values.
func anyOfJSON(column string, values []string) (string, []any) {
	if len(values) == 0 {
		return "", nil
	}
	sql := ""
	args := make([]any, 0, len(values))
	for i, v := range values {
		if i > 0 {
			sql += " OR "
		}
		sql += column + " @> ?"
		args = append(args, jsonArray(v))
	}
	return "(" + sql + ")", args
}
