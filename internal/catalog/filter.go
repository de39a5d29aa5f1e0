// Package catalog holds the pure search/filter logic applied to the cached
// product list.
package catalog

import (
	"sort"
	"strings"

	"storefront-service/internal/models"
)

// AllCategories is the sentinel category matching every product.
const AllCategories = "all"

// Categories returns the sorted set of distinct categories present in the
// product list, for the filter control.
func Categories(products []models.Product) []string {
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories
}

// Filter returns the products whose name contains search case-insensitively
// and whose category matches exactly (AllCategories matches any). Input
// order is preserved.
func Filter(products []models.Product, search, category string) []models.Product {
	needle := strings.ToLower(search)
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if category != AllCategories && p.Category != category {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}
