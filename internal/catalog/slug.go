package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a product name into a URL slug: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, edges trimmed.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// UniqueSlug returns base or the first free base-N suffix (starting at 2).
// excludeID skips the row being renamed so a waste keeps its own slug.
func UniqueSlug(ctx context.Context, db *gorm.DB, base, excludeID string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		var count int64
		q := db.WithContext(ctx).Model(&FarmWaste{}).Where("slug = ?", candidate)
		if excludeID != "" {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
