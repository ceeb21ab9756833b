package matching

import (
	"cmp"
	"errors"
	"slices"
	"strings"
)

var ErrInvalidSort = errors.New("invalid sort option")

type SortBy string

const (
	SortBestMatch SortBy = "best_match"
	SortDistance  SortBy = "distance"
	SortRating    SortBy = "rating"
	SortPriceAsc  SortBy = "price_asc"
	SortPriceDesc SortBy = "price_desc"
)

// ParseSort maps a query value to a sort option; empty means best match.
func ParseSort(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortBestMatch:
		return SortBestMatch, nil
	case SortDistance:
		return SortDistance, nil
	case SortRating:
		return SortRating, nil
	case SortPriceAsc:
		return SortPriceAsc, nil
	case SortPriceDesc:
		return SortPriceDesc, nil
	}
	return "", ErrInvalidSort
}

// Sort orders matches in place. It only reorders; nothing is filtered.
// Every order ends on provider id so equal keys never depend on input order.
func Sort(matches []Match, by SortBy) {
	slices.SortFunc(matches, func(a, b Match) int {
		var c int
		switch by {
		case SortDistance:
			c = cmp.Compare(a.Distance, b.Distance)
		case SortRating:
			c = cmp.Or(
				cmp.Compare(b.Provider.AverageRating, a.Provider.AverageRating),
				cmp.Compare(b.Provider.ReviewCount, a.Provider.ReviewCount),
				cmp.Compare(a.Distance, b.Distance),
			)
		case SortPriceAsc:
			c = cmp.Or(a.TotalPrice.Cmp(b.TotalPrice), cmp.Compare(a.Distance, b.Distance))
		case SortPriceDesc:
			c = cmp.Or(b.TotalPrice.Cmp(a.TotalPrice), cmp.Compare(a.Distance, b.Distance))
		default:
			c = cmp.Or(
				cmp.Compare(b.MatchRatio(), a.MatchRatio()),
				cmp.Compare(a.Distance, b.Distance),
			)
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.Provider.ID.String(), b.Provider.ID.String())
	})
}
