package catalog

import (
	"testing"

	"storefront-service/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, name, category string) models.Product {
	return models.Product{
		ID:       models.NewBigInt(id),
		Name:     name,
		Category: category,
		Price:    models.NewBigInt(100),
		Stock:    models.NewBigInt(10),
	}
}

func TestCategoriesSortedDistinct(t *testing.T) {
	products := []models.Product{
		product(1, "Mop", "Cleaning"),
		product(2, "Broom", "Cleaning"),
		product(3, "Apples", "Groceries"),
		product(4, "Batteries", "Electronics"),
	}

	assert.Equal(t, []string{"Cleaning", "Electronics", "Groceries"}, Categories(products))
	assert.Empty(t, Categories(nil))
}

func TestFilterIdentity(t *testing.T) {
	products := []models.Product{
		product(1, "Mop", "Cleaning"),
		product(2, "Apples", "Groceries"),
		product(3, "Broom", "Cleaning"),
	}

	got := Filter(products, "", AllCategories)
	assert.Equal(t, products, got, "empty search with the all-categories sentinel must return every product in order")
}

func TestFilterSearchCaseInsensitive(t *testing.T) {
	products := []models.Product{
		product(1, "Dish Soap", "Cleaning"),
		product(2, "Hand Soap", "Bathroom"),
		product(3, "Sponge", "Cleaning"),
	}

	got := Filter(products, "sOaP", AllCategories)
	require.Len(t, got, 2)
	assert.Equal(t, "Dish Soap", got[0].Name)
	assert.Equal(t, "Hand Soap", got[1].Name)
}

func TestFilterCategoryExactMatch(t *testing.T) {
	products := []models.Product{
		product(1, "Dish Soap", "Cleaning"),
		product(2, "Hand Soap", "Bathroom"),
	}

	got := Filter(products, "", "Cleaning")
	require.Len(t, got, 1)
	assert.Equal(t, "Dish Soap", got[0].Name)

	assert.Empty(t, Filter(products, "", "cleaning"), "category match is exact, not case-folded")
}

func TestFilterCombined(t *testing.T) {
	products := []models.Product{
		product(1, "Dish Soap", "Cleaning"),
		product(2, "Hand Soap", "Bathroom"),
		product(3, "Dish Rack", "Kitchen"),
	}

	got := Filter(products, "dish", "Cleaning")
	require.Len(t, got, 1)
	assert.Equal(t, "Dish Soap", got[0].Name)
}

func TestFilterPreservesOrder(t *testing.T) {
	faker := gofakeit.New(7)
	categories := []string{"Cleaning", "Groceries", "Electronics"}

	products := make([]models.Product, 0, 50)
	for i := 0; i < 50; i++ {
		products = append(products, product(int64(i), faker.ProductName(), categories[i%len(categories)]))
	}

	got := Filter(products, "", "Groceries")
	var prev int64 = -1
	for _, p := range got {
		assert.Equal(t, "Groceries", p.Category)
		assert.Greater(t, p.ID.Int64(), prev, "filtered output must preserve input order")
		prev = p.ID.Int64()
	}
}
