// Command backfill repairs catalog data and refreshes the vector index. It
// exists for deployments that predate the embedding worker: products created
// before it never got a vector row, and early imports carried inconsistent
// slugs, casing and stock totals.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"backend/internal/catalog"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/search"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func main() {
	var (
		dry         = flag.Bool("dry", false, "report what would change without writing")
		onlyMissing = flag.Bool("only-missing", false, "embed only products without a vector row")
		batchSize   = flag.Int("batch", 16, "products per embedding request")
	)
	flag.Parse()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := infra.InitDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer infra.CloseDatabase()

	embedder := search.NewHFEmbedder(&cfg.Embedding)
	wastes := catalog.NewWasteService(db, nil)
	vectors := search.NewPGVectorStore(db, wastes)

	ctx := context.Background()

	if err := repairCatalog(ctx, db, *dry); err != nil {
		logger.Fatal("repair catalog", zap.Error(err))
	}
	if err := reindex(ctx, db, embedder, vectors, *dry, *onlyMissing, *batchSize); err != nil {
		logger.Fatal("reindex", zap.Error(err))
	}

	logger.Info("backfill complete", zap.Bool("dry", *dry))
}

// repairCatalog normalizes slugs and tag arrays and recomputes stock totals
// for every product.
func repairCatalog(ctx context.Context, db *gorm.DB, dry bool) error {
	var all []catalog.FarmWaste
	if err := db.WithContext(ctx).Find(&all).Error; err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	for _, w := range all {
		updates := map[string]any{}

		base := catalog.Slugify(w.Name)
		// An old slug may legitimately carry a -N collision suffix; only
		// repair slugs that diverge from the name entirely.
		if base != "" && w.Slug != base && !hasSuffixOf(w.Slug, base) {
			slug, err := catalog.UniqueSlug(ctx, db, base, w.ID)
			if err != nil {
				return fmt.Errorf("slug for %s: %w", w.ID, err)
			}
			logger.Info("slug repair",
				zap.String("waste_id", w.ID),
				zap.String("old", w.Slug),
				zap.String("new", slug),
			)
			updates["slug"] = slug
		}

		if n := catalog.NormalizeList(w.Tags); !equalList(n, w.Tags) {
			updates["tags"] = datatypes.JSONSlice[string](n)
		}
		if n := catalog.NormalizeList(w.Species); !equalList(n, w.Species) {
			updates["species"] = datatypes.JSONSlice[string](n)
		}
		if n := catalog.NormalizeList(w.UseCases); !equalList(n, w.UseCases) {
			updates["use_cases"] = datatypes.JSONSlice[string](n)
		}

		if dry {
			if len(updates) > 0 {
				logger.Info("would repair", zap.String("waste_id", w.ID), zap.Int("fields", len(updates)))
			}
			continue
		}

		if len(updates) > 0 {
			if err := db.WithContext(ctx).Model(&catalog.FarmWaste{}).
				Where("id = ?", w.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("repair %s: %w", w.ID, err)
			}
		}
		if err := catalog.RollUpStock(db.WithContext(ctx), w.ID); err != nil {
			return fmt.Errorf("roll up stock for %s: %w", w.ID, err)
		}
	}

	logger.Info("catalog repaired", zap.Int("products", len(all)))
	return nil
}

func hasSuffixOf(slug, base string) bool {
	if len(slug) <= len(base)+1 {
		return false
	}
	return slug[:len(base)+1] == base+"-"
}

func equalList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// reindex embeds product passages in batches and upserts their vectors.
func reindex(ctx context.Context, db *gorm.DB, embedder search.Embedder, vectors *search.PGVectorStore, dry, onlyMissing bool, batchSize int) error {
	if batchSize < 1 {
		batchSize = 1
	}

	var ids []string
	if onlyMissing {
		missing, err := vectors.MissingVectorIDs(ctx)
		if err != nil {
			return fmt.Errorf("find missing vectors: %w", err)
		}
		ids = missing
	} else {
		if err := db.WithContext(ctx).Model(&catalog.FarmWaste{}).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("list product ids: %w", err)
		}
	}

	logger.Info("reindexing", zap.Int("count", len(ids)), zap.Bool("only_missing", onlyMissing))
	if dry {
		return nil
	}

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := reindexBatch(ctx, db, embedder, vectors, ids[start:end]); err != nil {
			// A transient provider error should not strand the rest of the
			// run; log the batch and keep going.
			logger.Warn("batch failed", zap.Strings("ids", ids[start:end]), zap.Error(err))
		}
	}

	return nil
}

func reindexBatch(ctx context.Context, db *gorm.DB, embedder search.Embedder, vectors *search.PGVectorStore, ids []string) error {
	var batch []catalog.FarmWaste
	if err := db.WithContext(ctx).Find(&batch, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	passages := make([]string, len(batch))
	for i, w := range batch {
		passages[i] = w.PassageBasis()
	}

	embeddings, err := embedder.EmbedBatch(ctx, passages, search.KindPassage)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	for i, w := range batch {
		if err := vectors.Upsert(ctx, w.ID, embeddings[i]); err != nil {
			return fmt.Errorf("upsert vector for %s: %w", w.ID, err)
		}
	}
	return nil
}
