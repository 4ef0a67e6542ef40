package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/client"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/identity"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/httpclient"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/logger"
)

const usage = `usage: hubctl [flags] <command> [args]

commands:
  whoami
  set-username NAME
  clear-username
  vote BUSINESS like|dislike|remove
  votes BUSINESS
  review product|business SUBJECT RATING [TEXT...]
  reviews product|business SUBJECT
  summary [product|business] SUBJECT

flags:
`

var errUsage = errors.New("usage")

type cliConfig struct {
	Endpoint string
	State    string
	Timeout  time.Duration
	LogLevel string
}

// parseFlags reads flags, falling back to HUB_ENDPOINT and HUB_STATE.
func parseFlags(args []string, stderr io.Writer) (cliConfig, []string, error) {
	var cfg cliConfig

	fs := flag.NewFlagSet("hubctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.Endpoint, "endpoint", "", "hub endpoint URL (or HUB_ENDPOINT)")
	fs.StringVar(&cfg.State, "state", "", "identity file (or HUB_STATE)")
	fs.DurationVar(&cfg.Timeout, "timeout", 15*time.Second, "per-request timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", "warn", "log level for diagnostics on stderr")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, nil, err
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("HUB_ENDPOINT")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:8080/api/v1/hub"
	}
	if cfg.State == "" {
		cfg.State = os.Getenv("HUB_STATE")
	}
	if cfg.State == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return cliConfig{}, nil, fmt.Errorf("locate config dir (use -state): %w", err)
		}
		cfg.State = filepath.Join(dir, "thehub", "identity.json")
	}
	if cfg.Timeout <= 0 {
		return cliConfig{}, nil, errors.New("timeout must be positive")
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return cliConfig{}, nil, errUsage
	}
	return cfg, fs.Args(), nil
}

// cli holds what every command needs.
type cli struct {
	ids    *identity.Store
	hub    *client.Client
	out    io.Writer
	logger *slog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, "hubctl:", err)
		}
		return 2
	}

	log := logger.NewWithWriter("hubctl", cfg.LogLevel, stderr)
	ids := identity.NewStore(identity.NewFileKV(cfg.State))
	userID, err := ids.GetOrCreateUserID()
	if err != nil {
		fmt.Fprintln(stderr, "hubctl:", err)
		return 1
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.Timeout

	c := &cli{
		ids:    ids,
		hub:    client.New(cfg.Endpoint, log, client.WithHTTPConfig(httpCfg), client.WithUserID(userID)),
		out:    stdout,
		logger: log,
	}

	if err := c.dispatch(ctx, rest[0], rest[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return 2
		}
		fmt.Fprintln(stderr, "hubctl:", errorText(err))
		return 1
	}
	return 0
}

// errorText prefers the caller-facing message of validation and server
// failures over the wrapped error chain.
func errorText(err error) string {
	var envErr *httpclient.EnvelopeError
	if errors.As(err, &envErr) {
		return envErr.Message
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "whoami":
		return c.whoami()
	case "set-username":
		if len(args) != 1 {
			return errUsage
		}
		return c.setUsername(ctx, args[0])
	case "clear-username":
		if err := c.ids.ClearUsername(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "username cleared")
		return nil
	case "vote":
		if len(args) != 2 {
			return errUsage
		}
		return c.vote(ctx, args[0], args[1])
	case "votes":
		if len(args) != 1 {
			return errUsage
		}
		return c.votes(ctx, args[0])
	case "review":
		if len(args) < 3 {
			return errUsage
		}
		return c.review(ctx, args[0], args[1], args[2], strings.Join(args[3:], " "))
	case "reviews":
		if len(args) != 2 {
			return errUsage
		}
		return c.reviews(ctx, args[0], args[1])
	case "summary":
		switch len(args) {
		case 1:
			return c.summary(ctx, string(domain.ScopeProduct), args[0])
		case 2:
			return c.summary(ctx, args[0], args[1])
		}
		return errUsage
	default:
		return errUsage
	}
}

// username returns the stored display name or an error telling the user to
// pick one.
func (c *cli) username() (string, error) {
	name, ok, err := c.ids.Username()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("no username set; run: hubctl set-username NAME")
	}
	return name, nil
}

func (c *cli) whoami() error {
	id, err := c.ids.GetOrCreateUserID()
	if err != nil {
		return err
	}
	name, ok, err := c.ids.Username()
	if err != nil {
		return err
	}
	if !ok {
		name = "(none)"
	}
	fmt.Fprintf(c.out, "user id:  %s\nusername: %s\n", id, name)
	return nil
}

// setUsername validates locally, asks the hub whether the name is free,
// registers it and only then stores it. The check and the registration are
// separate requests; the hub refuses a duplicate that slips in between.
func (c *cli) setUsername(ctx context.Context, raw string) error {
	name, err := identity.ValidateUsername(raw)
	if err != nil {
		return err
	}

	taken, err := c.hub.CheckUsername(ctx, name)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.AlreadyExists("Username already exists")
	}
	if err := c.hub.CreateUsername(ctx, name); err != nil {
		return err
	}
	if _, err := c.ids.SetUsername(name); err != nil {
		return err
	}

	c.logger.Debug("username registered", slog.String("username", name))
	fmt.Fprintf(c.out, "username set to %s\n", name)
	return nil
}

func (c *cli) vote(ctx context.Context, businessID, rawType string) error {
	voteType, ok := domain.ParseVoteType(rawType)
	if !ok {
		return apperrors.InvalidInput("Invalid vote type")
	}
	name, err := c.username()
	if err != nil {
		return err
	}
	tally, err := c.hub.Vote(ctx, businessID, name, voteType)
	if err != nil {
		return err
	}
	c.printTally(tally)
	return nil
}

func (c *cli) votes(ctx context.Context, businessID string) error {
	name, _, err := c.ids.Username()
	if err != nil {
		return err
	}
	tally, err := c.hub.GetVotes(ctx, businessID, name)
	if err != nil {
		return err
	}
	c.printTally(tally)
	return nil
}

func (c *cli) printTally(t *domain.VoteTally) {
	mine := "-"
	if t.UserVote != nil {
		mine = string(*t.UserVote)
	}
	fmt.Fprintf(c.out, "%s: %d likes, %d dislikes (your vote: %s)\n", t.BusinessID, t.Likes, t.Dislikes, mine)
}

func parseScope(raw string) (domain.Scope, error) {
	scope, ok := domain.ParseScope(raw)
	if !ok {
		return "", fmt.Errorf("unknown scope %q (want product or business)", raw)
	}
	return scope, nil
}

func (c *cli) review(ctx context.Context, rawScope, subjectID, rawRating, text string) error {
	scope, err := parseScope(rawScope)
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(rawRating)
	if err != nil || !domain.ValidRating(rating) {
		return apperrors.InvalidInput("Rating must be between 1 and 5")
	}
	name, err := c.username()
	if err != nil {
		return err
	}

	var r *domain.Review
	if scope == domain.ScopeBusiness {
		r, err = c.hub.SubmitBusinessReview(ctx, subjectID, name, rating, text)
	} else {
		r, err = c.hub.SubmitReview(ctx, subjectID, name, rating, text)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "review saved: %s %s %d/5\n", r.Scope, r.SubjectID, r.Rating)
	return nil
}

func (c *cli) reviews(ctx context.Context, rawScope, subjectID string) error {
	scope, err := parseScope(rawScope)
	if err != nil {
		return err
	}
	name, _, err := c.ids.Username()
	if err != nil {
		return err
	}

	var page *client.ReviewPage
	if scope == domain.ScopeBusiness {
		page, err = c.hub.GetBusinessReviews(ctx, subjectID, name)
	} else {
		page, err = c.hub.GetReviews(ctx, subjectID, name)
	}
	if err != nil {
		return err
	}

	if len(page.Reviews) == 0 {
		fmt.Fprintln(c.out, "no reviews yet")
		return nil
	}
	for _, r := range page.Reviews {
		marker := " "
		if page.UserReview != nil && r.Voter == page.UserReview.Voter {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %d/5 %-20s %s %s\n", marker, r.Rating, r.Voter,
			r.Timestamp.Format(time.DateOnly), r.Text)
	}
	return nil
}

func (c *cli) summary(ctx context.Context, rawScope, subjectID string) error {
	scope, err := parseScope(rawScope)
	if err != nil {
		return err
	}

	var s *domain.RatingSummary
	if scope == domain.ScopeBusiness {
		s, err = c.hub.GetBusinessReviewSummary(ctx, subjectID)
	} else {
		s, err = c.hub.GetReviewSummary(ctx, subjectID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s: %.2f average from %d reviews\n", s.SubjectID, s.AverageRating, s.TotalReviews)
	for stars := domain.MaxRating; stars >= domain.MinRating; stars-- {
		fmt.Fprintf(c.out, "  %d★ %d\n", stars, s.RatingCounts[stars-1])
	}
	return nil
}
