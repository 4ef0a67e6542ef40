// Package client is a Go client for the hub action endpoint. It speaks the
// same wire format as the storefront: GET with query parameters for reads,
// form-urlencoded POST for writes, and the {success, message, ...} envelope
// on every response.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/httpclient"
)

// ReviewPage is the reviews of one subject plus the caller's own review.
// Summary is only filled by endpoints that return one.
type ReviewPage struct {
	Reviews    []domain.Review       `json:"reviews"`
	UserReview *domain.Review        `json:"userReview"`
	Summary    *domain.RatingSummary `json:"summary,omitempty"`
}

// Client calls one hub endpoint.
type Client struct {
	endpoint string
	userID   string
	http     *httpclient.CircuitBreakerClient
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	http    httpclient.Config
	breaker httpclient.CircuitBreakerConfig
	userID  string
}

// WithHTTPConfig overrides timeouts and retry settings.
func WithHTTPConfig(cfg httpclient.Config) Option {
	return func(o *options) { o.http = cfg }
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(cfg httpclient.CircuitBreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

// WithUserID sends the device id as userId on every request.
func WithUserID(id string) Option {
	return func(o *options) { o.userID = id }
}

// New creates a client for endpoint, e.g. https://hub.example/api/v1/hub.
func New(endpoint string, logger *slog.Logger, opts ...Option) *Client {
	o := options{
		http:    httpclient.DefaultConfig(),
		breaker: httpclient.DefaultCircuitBreakerConfig("hub-api"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		endpoint: strings.TrimRight(endpoint, "?"),
		userID:   o.userID,
		http:     httpclient.NewCircuitBreakerClient(httpclient.New(o.http), o.breaker, logger),
		logger:   logger,
	}
}

// Message returns the server message carried by err, or err's text when the
// failure happened before a response was decoded.
func Message(err error) string {
	var env *httpclient.EnvelopeError
	if errors.As(err, &env) {
		return env.Message
	}
	return err.Error()
}

func (c *Client) read(ctx context.Context, action string, params url.Values, target any) error {
	q := url.Values{"action": {action}}
	for k, v := range params {
		q[k] = v
	}
	if c.userID != "" {
		q.Set("userId", c.userID)
	}

	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	resp, err := c.http.Get(ctx, c.endpoint+sep+q.Encode())
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if err := httpclient.DecodeEnvelope(resp, target); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

func (c *Client) write(ctx context.Context, action string, params url.Values, target any) error {
	form := url.Values{"action": {action}}
	for k, v := range params {
		form[k] = v
	}
	if c.userID != "" {
		form.Set("userId", c.userID)
	}

	resp, err := c.http.Post(ctx, c.endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if err := httpclient.DecodeEnvelope(resp, target); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	c.logger.DebugContext(ctx, "hub write succeeded", slog.String("action", action))
	return nil
}

// withUser adds username to params when set.
func withUser(params url.Values, username string) url.Values {
	if username != "" {
		params.Set("username", username)
	}
	return params
}

// CheckUsername reports whether name is registered.
func (c *Client) CheckUsername(ctx context.Context, name string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	if err := c.read(ctx, "checkUsername", url.Values{"username": {name}}, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// CreateUsername registers name. It is sent once: a retry after a lost
// response would find the name already taken.
func (c *Client) CreateUsername(ctx context.Context, name string) error {
	return c.write(httpclient.WithoutRetry(ctx), "createUsername", url.Values{"username": {name}}, nil)
}

type votesEnvelope struct {
	Votes domain.VoteTally `json:"votes"`
}

// GetVotes returns the counts of a business and, when username is set, that
// user's vote.
func (c *Client) GetVotes(ctx context.Context, businessID, username string) (*domain.VoteTally, error) {
	var out votesEnvelope
	params := withUser(url.Values{"businessId": {businessID}}, username)
	if err := c.read(ctx, "getVotes", params, &out); err != nil {
		return nil, err
	}
	return &out.Votes, nil
}

// Vote records, replaces or removes the user's vote.
func (c *Client) Vote(ctx context.Context, businessID, username string, voteType domain.VoteType) (*domain.VoteTally, error) {
	var out votesEnvelope
	params := url.Values{
		"businessId": {businessID},
		"username":   {username},
		"voteType":   {string(voteType)},
	}
	if err := c.write(ctx, "vote", params, &out); err != nil {
		return nil, err
	}
	return &out.Votes, nil
}

// GetReviews lists the reviews of a product, newest first.
func (c *Client) GetReviews(ctx context.Context, productID, username string) (*ReviewPage, error) {
	var out ReviewPage
	params := withUser(url.Values{"productId": {productID}}, username)
	if err := c.read(ctx, "getReviews", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBusinessReviews lists the reviews of a business with their summary.
func (c *Client) GetBusinessReviews(ctx context.Context, businessID, username string) (*ReviewPage, error) {
	var out ReviewPage
	params := withUser(url.Values{"businessId": {businessID}}, username)
	if err := c.read(ctx, "getBusinessReviews", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type summaryEnvelope struct {
	Summary domain.RatingSummary `json:"summary"`
}

// GetReviewSummary aggregates the reviews of a product.
func (c *Client) GetReviewSummary(ctx context.Context, productID string) (*domain.RatingSummary, error) {
	var out summaryEnvelope
	if err := c.read(ctx, "getReviewSummary", url.Values{"productId": {productID}}, &out); err != nil {
		return nil, err
	}
	return &out.Summary, nil
}

// GetBusinessReviewSummary aggregates the reviews of a business.
func (c *Client) GetBusinessReviewSummary(ctx context.Context, businessID string) (*domain.RatingSummary, error) {
	var out summaryEnvelope
	if err := c.read(ctx, "getBusinessReviewSummary", url.Values{"businessId": {businessID}}, &out); err != nil {
		return nil, err
	}
	return &out.Summary, nil
}

type reviewEnvelope struct {
	Review domain.Review `json:"review"`
}

func (c *Client) submit(ctx context.Context, action string, scope domain.Scope, subjectID, username string, rating int, text string) (*domain.Review, error) {
	var out reviewEnvelope
	params := url.Values{
		scope.IDField(): {subjectID},
		"username":      {username},
		"rating":        {strconv.Itoa(rating)},
		"reviewText":    {text},
	}
	if err := c.write(ctx, action, params, &out); err != nil {
		return nil, err
	}
	return &out.Review, nil
}

// SubmitReview stores the user's review of a product.
func (c *Client) SubmitReview(ctx context.Context, productID, username string, rating int, text string) (*domain.Review, error) {
	return c.submit(ctx, "submitReview", domain.ScopeProduct, productID, username, rating, text)
}

// SubmitBusinessReview stores the user's review of a business.
func (c *Client) SubmitBusinessReview(ctx context.Context, businessID, username string, rating int, text string) (*domain.Review, error) {
	return c.submit(ctx, "submitBusinessReview", domain.ScopeBusiness, businessID, username, rating, text)
}
