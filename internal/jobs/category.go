package jobs

import "fmt"

// Category is the board column a classified posting lives in.
type Category string

// Board categories. New holds unscored entries; the remaining four are
// assigned by the scoring policy or by explicit user moves.
const (
	CategoryNew      Category = "New"
	CategoryMatch    Category = "Match"
	CategoryReview   Category = "Review"
	CategoryApplied  Category = "Applied"
	CategoryRejected Category = "Rejected"
)

// Categories returns every category in board display order.
func Categories() []Category {
	return []Category{CategoryNew, CategoryMatch, CategoryReview, CategoryApplied, CategoryRejected}
}

// ParseCategory converts a raw string to a Category, returning an error for
// unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case CategoryNew, CategoryMatch, CategoryReview, CategoryApplied, CategoryRejected:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Score thresholds for CategoryForScore. The score, not the model's label,
// decides the category.
const (
	matchThreshold  = 80
	reviewThreshold = 60
)

// CategoryForScore maps a 0-100 score onto a board category. This is the
// single source of truth for score-driven categorization: scores above 80
// are matches, 60-80 need review, below 60 are rejected.
func CategoryForScore(score int) Category {
	switch {
	case score > matchThreshold:
		return CategoryMatch
	case score >= reviewThreshold:
		return CategoryReview
	default:
		return CategoryRejected
	}
}
