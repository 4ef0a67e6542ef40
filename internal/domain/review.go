package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Scope selects which kind of subject a review is attached to.
type Scope string

const (
	ScopeProduct  Scope = "product"
	ScopeBusiness Scope = "business"
)

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// ParseScope accepts product and business.
func ParseScope(s string) (Scope, bool) {
	switch sc := Scope(s); sc {
	case ScopeProduct, ScopeBusiness:
		return sc, true
	default:
		return "", false
	}
}

// IDField is the wire name of the subject id for this scope.
func (s Scope) IDField() string {
	if s == ScopeBusiness {
		return "businessId"
	}
	return "productId"
}

// ValidRating reports whether r is an integer star rating in range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Review is one row of a review ledger, keyed by (Scope, SubjectID, Voter).
// Resubmission overwrites Rating, Text and Timestamp.
type Review struct {
	Scope     Scope
	SubjectID string
	Voter     string
	Rating    int
	Text      string
	Timestamp time.Time
}

type reviewJSON struct {
	ProductID  string `json:"productId,omitempty"`
	BusinessID string `json:"businessId,omitempty"`
	Username   string `json:"username"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"reviewText"`
	Timestamp  string `json:"timestamp"`
}

// MarshalJSON writes the subject id under productId or businessId depending
// on the scope, and the timestamp as RFC 3339 UTC.
func (r Review) MarshalJSON() ([]byte, error) {
	out := reviewJSON{
		Username:   r.Voter,
		Rating:     r.Rating,
		ReviewText: r.Text,
		Timestamp:  r.Timestamp.UTC().Format(time.RFC3339),
	}
	if r.Scope == ScopeBusiness {
		out.BusinessID = r.SubjectID
	} else {
		out.ProductID = r.SubjectID
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads MarshalJSON output and the storefront review shape,
// which carries the text under comment and the timestamp as epoch
// milliseconds. A review with a productId is a product review even when it
// also names its business.
func (r *Review) UnmarshalJSON(b []byte) error {
	var in struct {
		ProductID  string          `json:"productId"`
		BusinessID string          `json:"businessId"`
		Username   string          `json:"username"`
		Rating     int             `json:"rating"`
		ReviewText string          `json:"reviewText"`
		Comment    string          `json:"comment"`
		Timestamp  json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = Review{Voter: in.Username, Rating: in.Rating, Text: in.ReviewText}
	if r.Text == "" {
		r.Text = in.Comment
	}
	if in.ProductID != "" {
		r.Scope, r.SubjectID = ScopeProduct, in.ProductID
	} else {
		r.Scope, r.SubjectID = ScopeBusiness, in.BusinessID
	}

	ts, err := parseTimestamp(in.Timestamp)
	if err != nil {
		return fmt.Errorf("review timestamp: %w", err)
	}
	r.Timestamp = ts
	return nil
}

// parseTimestamp accepts an RFC 3339 string or epoch milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339, s)
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// SortByRecency orders reviews newest first. Ties keep their input order.
func SortByRecency(reviews []Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].Timestamp.After(reviews[j].Timestamp)
	})
}

// RatingSummary aggregates the reviews of one subject. RatingCounts[i] holds
// the number of (i+1)-star reviews.
type RatingSummary struct {
	Scope         Scope
	SubjectID     string
	AverageRating float64
	TotalReviews  int
	RatingCounts  [MaxRating]int
}

// MarshalJSON keys the subject id by scope like Review does.
func (s RatingSummary) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		s.Scope.IDField(): s.SubjectID,
		"averageRating":   s.AverageRating,
		"totalReviews":    s.TotalReviews,
		"ratingCounts":    s.RatingCounts,
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *RatingSummary) UnmarshalJSON(b []byte) error {
	var in struct {
		ProductID     string         `json:"productId"`
		BusinessID    string         `json:"businessId"`
		AverageRating float64        `json:"averageRating"`
		TotalReviews  int            `json:"totalReviews"`
		RatingCounts  [MaxRating]int `json:"ratingCounts"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = RatingSummary{
		Scope:         ScopeProduct,
		SubjectID:     in.ProductID,
		AverageRating: in.AverageRating,
		TotalReviews:  in.TotalReviews,
		RatingCounts:  in.RatingCounts,
	}
	if in.BusinessID != "" {
		s.Scope, s.SubjectID = ScopeBusiness, in.BusinessID
	}
	return nil
}

// Summarize computes the exact mean rating and histogram. Every review counts
// towards TotalReviews and the mean; ratings outside 1..5 are left out of the
// histogram only. The mean of no reviews is 0.
func Summarize(scope Scope, subjectID string, reviews []Review) RatingSummary {
	s := RatingSummary{Scope: scope, SubjectID: subjectID, TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return s
	}

	total := 0
	for _, r := range reviews {
		total += r.Rating
		if ValidRating(r.Rating) {
			s.RatingCounts[r.Rating-1]++
		}
	}
	s.AverageRating = float64(total) / float64(len(reviews))
	return s
}
