package classify

import "strings"

// DefaultPrice is charged when neither the category nor its parent has a
// configured price.
const DefaultPrice = 1.00

// ResolvePrice returns the price for categoryName from the hierarchy.
// An exact case-insensitive name match wins; otherwise the parent
// category's price applies if present; otherwise DefaultPrice.
// Deterministic and always defined.
func ResolvePrice(categoryName string, hierarchy []Category, parentName string) float64 {
	for _, cat := range hierarchy {
		if strings.EqualFold(cat.Name, categoryName) {
			return cat.Price
		}
	}
	if parentName != "" {
		for _, cat := range hierarchy {
			if strings.EqualFold(cat.Name, parentName) {
				return cat.Price
			}
		}
	}
	return DefaultPrice
}
