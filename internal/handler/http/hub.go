package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/service"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/httputil"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/logger"
)

// Dispatch messages.
const (
	MsgNoAction      = "No action specified"
	MsgInvalidAction = "Invalid action"
	MsgInvalidJSON   = "Invalid JSON"
)

// Success messages.
const (
	MsgUsernameExists    = "Username exists"
	MsgUsernameNotExists = "Username does not exist"
	MsgUsernameCreated   = "Username created successfully"
	MsgVotesRetrieved    = "Votes retrieved successfully"
	MsgVoteRecorded      = "Vote recorded successfully"
	MsgReviewsRetrieved  = "Reviews retrieved successfully"
	MsgSummaryRetrieved  = "Review summary retrieved successfully"
	MsgReviewSubmitted   = "Review submitted successfully"
)

var hubActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hub_actions_total",
		Help: "Hub actions dispatched, by action and outcome",
	},
	[]string{"action", "success"},
)

// result is what an action hands back to the dispatcher on success.
type result struct {
	message string
	data    map[string]any
}

type actionFunc func(ctx context.Context, p params) (result, error)

// HubHandler serves the single action endpoint. Reads arrive as GET with the
// action in the query string, writes as POST with the action in the body.
type HubHandler struct {
	votes     *service.VoteService
	reviews   *service.ReviewService
	usernames *service.UsernameService
	schema    *service.SchemaService
	logger    *slog.Logger

	reads  map[string]actionFunc
	writes map[string]actionFunc
}

// NewHubHandler creates the action handler.
func NewHubHandler(
	votes *service.VoteService,
	reviews *service.ReviewService,
	usernames *service.UsernameService,
	schema *service.SchemaService,
	logger *slog.Logger,
) *HubHandler {
	h := &HubHandler{
		votes:     votes,
		reviews:   reviews,
		usernames: usernames,
		schema:    schema,
		logger:    logger,
	}

	h.reads = map[string]actionFunc{
		"checkUsername":            h.checkUsername,
		"getVotes":                 h.getVotes,
		"getReviews":               h.getReviews,
		"getReviewSummary":         h.summary(domain.ScopeProduct),
		"getProductReviews":        h.reviewPage(domain.ScopeProduct),
		"getBusinessReviews":       h.reviewPage(domain.ScopeBusiness),
		"getBusinessReviewSummary": h.summary(domain.ScopeBusiness),
	}
	h.writes = map[string]actionFunc{
		"createUsername":       h.createUsername,
		"vote":                 h.vote,
		"submitReview":         h.submitReview(domain.ScopeProduct, false),
		"submitProductReview":  h.submitReview(domain.ScopeProduct, true),
		"submitBusinessReview": h.submitReview(domain.ScopeBusiness, true),
	}
	return h
}

// Read handles GET requests.
func (h *HubHandler) Read(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSchema(w, r) {
		return
	}
	h.dispatch(w, r, h.reads, queryParams(r.URL.Query()))
}

// Write handles POST requests.
func (h *HubHandler) Write(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSchema(w, r) {
		return
	}

	p, err := bodyParams(w, r)
	if err != nil {
		if !errors.Is(err, errInvalidJSON) {
			h.log(r).WarnContext(r.Context(), "unreadable request body", slog.String("error", err.Error()))
		}
		httputil.WriteFailure(w, MsgInvalidJSON)
		return
	}
	h.dispatch(w, r, h.writes, p)
}

func (h *HubHandler) ensureSchema(w http.ResponseWriter, r *http.Request) bool {
	if err := h.schema.Ensure(r.Context()); err != nil {
		httputil.WriteFailure(w, service.MsgFailedToInitialize)
		return false
	}
	return true
}

func (h *HubHandler) dispatch(w http.ResponseWriter, r *http.Request, actions map[string]actionFunc, p params) {
	action := p.str("action")
	if action == "" {
		hubActionsTotal.WithLabelValues("none", "false").Inc()
		httputil.WriteFailure(w, MsgNoAction)
		return
	}

	fn, ok := actions[action]
	if !ok {
		hubActionsTotal.WithLabelValues("invalid", "false").Inc()
		httputil.WriteFailure(w, MsgInvalidAction)
		return
	}

	// userId identifies the device only; rows are keyed by username.
	if userID := p.str("userId"); userID != "" {
		h.log(r).DebugContext(r.Context(), "dispatching action",
			slog.String("action", action),
			slog.String("device_user_id", userID),
		)
	}

	res, err := fn(r.Context(), p)
	hubActionsTotal.WithLabelValues(action, strconv.FormatBool(err == nil)).Inc()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, res.message, res.data)
}

func (h *HubHandler) log(r *http.Request) *slog.Logger {
	if l := logger.FromContext(r.Context()); l != slog.Default() {
		return l
	}
	return h.logger
}

// --- Read actions ---

func (h *HubHandler) checkUsername(ctx context.Context, p params) (result, error) {
	exists, err := h.usernames.Exists(ctx, p.str("username"))
	if err != nil {
		return result{}, err
	}
	msg := MsgUsernameNotExists
	if exists {
		msg = MsgUsernameExists
	}
	return result{msg, map[string]any{"exists": exists}}, nil
}

func (h *HubHandler) getVotes(ctx context.Context, p params) (result, error) {
	tally, err := h.votes.GetVotes(ctx, p.str("businessId"), p.str("username"))
	if err != nil {
		return result{}, err
	}
	return result{MsgVotesRetrieved, map[string]any{"votes": tally}}, nil
}

func (h *HubHandler) getReviews(ctx context.Context, p params) (result, error) {
	list, err := h.reviews.ListReviews(ctx, domain.ScopeProduct, p.str("productId"), p.str("username"))
	if err != nil {
		return result{}, err
	}
	return result{MsgReviewsRetrieved, map[string]any{
		"reviews":    nonNil(list.Reviews),
		"userReview": list.UserReview,
	}}, nil
}

// reviewPage returns reviews, the caller's review and the summary in one
// response, with reviews in the storefront shape.
func (h *HubHandler) reviewPage(scope domain.Scope) actionFunc {
	return func(ctx context.Context, p params) (result, error) {
		list, err := h.reviews.ListReviews(ctx, scope, p.str(scope.IDField()), p.str("username"))
		if err != nil {
			return result{}, err
		}
		businessID := p.str("businessId")
		return result{MsgReviewsRetrieved, map[string]any{
			"reviews":    toStorefrontList(list.Reviews, businessID),
			"userReview": toStorefrontPtr(list.UserReview, businessID),
			"summary":    list.Summary,
		}}, nil
	}
}

func (h *HubHandler) summary(scope domain.Scope) actionFunc {
	return func(ctx context.Context, p params) (result, error) {
		s, err := h.reviews.Summary(ctx, scope, p.str(scope.IDField()))
		if err != nil {
			return result{}, err
		}
		return result{MsgSummaryRetrieved, map[string]any{"summary": s}}, nil
	}
}

// --- Write actions ---

func (h *HubHandler) createUsername(ctx context.Context, p params) (result, error) {
	if _, err := h.usernames.Create(ctx, p.str("username")); err != nil {
		return result{}, err
	}
	return result{MsgUsernameCreated, nil}, nil
}

func (h *HubHandler) vote(ctx context.Context, p params) (result, error) {
	tally, err := h.votes.CastVote(ctx, service.CastVoteInput{
		BusinessID: p.str("businessId"),
		Voter:      p.str("username"),
		VoteType:   p.str("voteType"),
	})
	if err != nil {
		return result{}, err
	}
	return result{MsgVoteRecorded, map[string]any{"votes": tally}}, nil
}

// submitReview stores a review. storefront selects the storefront review
// shape for the response.
func (h *HubHandler) submitReview(scope domain.Scope, storefront bool) actionFunc {
	return func(ctx context.Context, p params) (result, error) {
		review, err := h.reviews.Submit(ctx, service.SubmitReviewInput{
			Scope:     scope,
			SubjectID: p.str(scope.IDField()),
			Voter:     p.str("username"),
			Rating:    p.rating(),
			Text:      p.reviewText(),
		})
		if err != nil {
			return result{}, err
		}
		if storefront {
			return result{MsgReviewSubmitted, map[string]any{"review": toStorefront(*review, p.str("businessId"))}}, nil
		}
		return result{MsgReviewSubmitted, map[string]any{"review": review}}, nil
	}
}

func nonNil(reviews []domain.Review) []domain.Review {
	if reviews == nil {
		return []domain.Review{}
	}
	return reviews
}
