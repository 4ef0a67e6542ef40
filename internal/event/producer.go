package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	pkgkafka "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/kafka"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/logger"
)

// Kafka topics for hub domain events.
const (
	TopicVoteCast        = "hub.vote.cast"
	TopicReviewSubmitted = "hub.review.submitted"
	TopicUsernameCreated = "hub.username.created"
)

// Aggregate types.
const (
	AggregateTypeBusiness = "business"
	AggregateTypeProduct  = "product"
	AggregateTypeUsername = "username"
)

// SourceHubService identifies events emitted by this service.
const SourceHubService = "hub-service"

// VoteCastData is the payload of hub.vote.cast. VoteType is "remove" when
// a vote was withdrawn.
type VoteCastData struct {
	BusinessID string    `json:"businessId"`
	Username   string    `json:"username"`
	VoteType   string    `json:"voteType"`
	Likes      int       `json:"likes"`
	Dislikes   int       `json:"dislikes"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReviewSubmittedData is the payload of hub.review.submitted.
type ReviewSubmittedData struct {
	Scope     string    `json:"scope"`
	SubjectID string    `json:"subjectId"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// UsernameCreatedData is the payload of hub.username.created.
type UsernameCreatedData struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Publisher is the part of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes hub domain events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates an event producer on top of a Kafka publisher.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceHubService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}
	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishVoteCast announces a vote change and the resulting counts.
func (p *Producer) PublishVoteCast(ctx context.Context, businessID, voter string, voteType domain.VoteType, counts domain.VoteCounts, at time.Time) error {
	return p.publish(ctx, TopicVoteCast, businessID, AggregateTypeBusiness, VoteCastData{
		BusinessID: businessID,
		Username:   voter,
		VoteType:   string(voteType),
		Likes:      counts.Likes,
		Dislikes:   counts.Dislikes,
		Timestamp:  at,
	})
}

// PublishReviewSubmitted announces a new or replaced review. Events are keyed
// by scope and subject so one subject's reviews stay ordered.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	aggregateType := AggregateTypeProduct
	if review.Scope == domain.ScopeBusiness {
		aggregateType = AggregateTypeBusiness
	}
	return p.publish(ctx, TopicReviewSubmitted, string(review.Scope)+":"+review.SubjectID, aggregateType, ReviewSubmittedData{
		Scope:     string(review.Scope),
		SubjectID: review.SubjectID,
		Username:  review.Voter,
		Rating:    review.Rating,
		Timestamp: review.Timestamp,
	})
}

// PublishUsernameCreated announces a newly registered username.
func (p *Producer) PublishUsernameCreated(ctx context.Context, u *domain.Username) error {
	return p.publish(ctx, TopicUsernameCreated, u.Name, AggregateTypeUsername, UsernameCreatedData{
		Username:  u.Name,
		CreatedAt: u.CreatedAt,
	})
}

// Noop discards events. It is used when Kafka is disabled.
type Noop struct{}

func (Noop) PublishVoteCast(context.Context, string, string, domain.VoteType, domain.VoteCounts, time.Time) error {
	return nil
}

func (Noop) PublishReviewSubmitted(context.Context, *domain.Review) error { return nil }

func (Noop) PublishUsernameCreated(context.Context, *domain.Username) error { return nil }
