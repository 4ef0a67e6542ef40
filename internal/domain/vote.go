package domain

import "time"

// VoteType is the kind of vote a voter casts on a business.
type VoteType string

const (
	VoteLike    VoteType = "like"
	VoteDislike VoteType = "dislike"
	// VoteRemove withdraws the voter's existing vote. It is never stored.
	VoteRemove VoteType = "remove"
)

// ParseVoteType accepts like, dislike and remove.
func ParseVoteType(s string) (VoteType, bool) {
	switch t := VoteType(s); t {
	case VoteLike, VoteDislike, VoteRemove:
		return t, true
	default:
		return "", false
	}
}

// Stored reports whether votes of this type occupy a ledger row.
func (t VoteType) Stored() bool {
	return t == VoteLike || t == VoteDislike
}

// Vote is one row of the vote ledger, keyed by (BusinessID, Voter).
type Vote struct {
	BusinessID string    `json:"businessId"`
	Voter      string    `json:"username"`
	Type       VoteType  `json:"voteType"`
	Timestamp  time.Time `json:"timestamp"`
}

// VoteCounts is the like/dislike split for one business.
type VoteCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// CountVotes tallies votes by type. Rows of unknown type are ignored.
func CountVotes(votes []Vote) VoteCounts {
	var c VoteCounts
	for _, v := range votes {
		switch v.Type {
		case VoteLike:
			c.Likes++
		case VoteDislike:
			c.Dislikes++
		}
	}
	return c
}

// VoteTally is the vote payload returned to clients. UserVote is nil when the
// requesting voter has no vote or was not named.
type VoteTally struct {
	BusinessID string    `json:"businessId"`
	Likes      int       `json:"likes"`
	Dislikes   int       `json:"dislikes"`
	UserVote   *VoteType `json:"userVote"`
}

// NewVoteTally combines counts with the requesting voter's vote.
func NewVoteTally(businessID string, counts VoteCounts, userVote *VoteType) VoteTally {
	return VoteTally{
		BusinessID: businessID,
		Likes:      counts.Likes,
		Dislikes:   counts.Dislikes,
		UserVote:   userVote,
	}
}
