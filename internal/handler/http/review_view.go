package http

import "github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"

// storefrontReview is the review shape the storefront review pages read:
// the text under comment, times as epoch milliseconds, and the owning
// business on product reviews. reviewText is kept for older callers.
type storefrontReview struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId,omitempty"`
	BusinessID string `json:"businessId,omitempty"`
	Username   string `json:"username"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	ReviewText string `json:"reviewText"`
	Timestamp  int64  `json:"timestamp"`
	CreatedAt  int64  `json:"createdAt"`
}

// toStorefront converts r. businessID is the business a product belongs to,
// as sent by the caller; business reviews use their own subject id.
func toStorefront(r domain.Review, businessID string) storefrontReview {
	ms := r.Timestamp.UnixMilli()
	out := storefrontReview{
		ID:         string(r.Scope) + ":" + r.SubjectID + ":" + r.Voter,
		Username:   r.Voter,
		Rating:     r.Rating,
		Comment:    r.Text,
		ReviewText: r.Text,
		Timestamp:  ms,
		CreatedAt:  ms,
	}
	if r.Scope == domain.ScopeBusiness {
		out.BusinessID = r.SubjectID
	} else {
		out.ProductID = r.SubjectID
		out.BusinessID = businessID
	}
	return out
}

func toStorefrontList(reviews []domain.Review, businessID string) []storefrontReview {
	out := make([]storefrontReview, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toStorefront(r, businessID))
	}
	return out
}

func toStorefrontPtr(r *domain.Review, businessID string) *storefrontReview {
	if r == nil {
		return nil
	}
	v := toStorefront(*r, businessID)
	return &v
}
