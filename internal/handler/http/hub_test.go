package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/event"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository/memory"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/service"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/health"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/middleware"
)

// =============================================================================
// Test harness
// =============================================================================

type stores struct {
	votes     repository.VoteStore
	reviews   repository.ReviewStore
	usernames repository.UsernameStore
}

func memoryStores() stores {
	return stores{
		votes:     memory.NewVoteStore(),
		reviews:   memory.NewReviewStore(),
		usernames: memory.NewUsernameStore(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, s stores, extraSchema ...repository.Schema) http.Handler {
	t.Helper()
	l := discardLogger()
	pub := event.Noop{}

	schemaStores := append([]repository.Schema{s.votes, s.reviews, s.usernames}, extraSchema...)
	hub := NewHubHandler(
		service.NewVoteService(s.votes, pub, l),
		service.NewReviewService(s.reviews, pub, l),
		service.NewUsernameService(s.usernames, pub, l),
		service.NewSchemaService(l, schemaStores...),
		l,
	)
	return NewRouter(hub, health.NewHandler(), RouterConfig{
		ServiceName: "hub-test",
		CORS:        middleware.DefaultCORSConfig(),
	}, l)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func get(t *testing.T, h http.Handler, query url.Values) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/hub?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return decode(t, rec)
}

func postJSON(t *testing.T, h http.Handler, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hub", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return decode(t, rec)
}

func postForm(t *testing.T, h http.Handler, form url.Values) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hub", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return decode(t, rec)
}

func assertFailure(t *testing.T, body map[string]any, message string) {
	t.Helper()
	assert.Equal(t, false, body["success"])
	assert.Equal(t, message, body["message"])
}

func assertSuccess(t *testing.T, body map[string]any, message string) {
	t.Helper()
	assert.Equal(t, true, body["success"], body["message"])
	assert.Equal(t, message, body["message"])
}

// =============================================================================
// Dispatch
// =============================================================================

func TestDispatch_NoAction(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	assertFailure(t, get(t, h, url.Values{}), MsgNoAction)
	assertFailure(t, postJSON(t, h, `{"username":"alice"}`), MsgNoAction)
}

func TestDispatch_InvalidAction(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	assertFailure(t, get(t, h, url.Values{"action": {"dropTables"}}), MsgInvalidAction)
	// Write actions are not reachable through GET and vice versa.
	assertFailure(t, get(t, h, url.Values{"action": {"vote"}}), MsgInvalidAction)
	assertFailure(t, postJSON(t, h, `{"action":"getVotes","businessId":"B1"}`), MsgInvalidAction)
}

func TestDispatch_InvalidJSON(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	for _, body := range []string{`{"action":`, ``, `null`, `[1,2]`} {
		assertFailure(t, postJSON(t, h, body), MsgInvalidJSON)
	}
}

func TestDispatch_ExecAlias(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	req := httptest.NewRequest(http.MethodGet, "/exec?action=checkUsername&username=alice", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := decode(t, rec)
	assertSuccess(t, body, MsgUsernameNotExists)
	assert.Equal(t, false, body["exists"])
}

func TestDispatch_Preflight(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/hub", nil)
	req.Header.Set("Origin", "https://the-hubja.netlify.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://the-hubja.netlify.app", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}

// =============================================================================
// Schema latch
// =============================================================================

type flakySchema struct {
	failures int
	calls    int
}

func (f *flakySchema) EnsureSchema(context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("sheet locked")
	}
	return nil
}

func TestDispatch_SchemaFailureThenRecovery(t *testing.T) {
	schema := &flakySchema{failures: 1}
	h := newTestRouter(t, memoryStores(), schema)

	q := url.Values{"action": {"checkUsername"}, "username": {"alice"}}
	assertFailure(t, get(t, h, q), service.MsgFailedToInitialize)

	assertSuccess(t, get(t, h, q), MsgUsernameNotExists)
	assertSuccess(t, get(t, h, q), MsgUsernameNotExists)
	assert.Equal(t, 2, schema.calls)
}

func TestDispatch_SchemaRunsBeforeActionCheck(t *testing.T) {
	h := newTestRouter(t, memoryStores(), &flakySchema{failures: 1})

	assertFailure(t, get(t, h, url.Values{}), service.MsgFailedToInitialize)
}

// =============================================================================
// Usernames
// =============================================================================

func TestUsernames_CheckAndCreate(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	assertFailure(t, get(t, h, url.Values{"action": {"checkUsername"}}), service.MsgUsernameRequired)

	created := postJSON(t, h, `{"action":"createUsername","username":"alice"}`)
	assertSuccess(t, created, MsgUsernameCreated)

	body := get(t, h, url.Values{"action": {"checkUsername"}, "username": {"alice"}})
	assertSuccess(t, body, MsgUsernameExists)
	assert.Equal(t, true, body["exists"])

	again := postJSON(t, h, `{"action":"createUsername","username":"alice"}`)
	assertFailure(t, again, service.MsgUsernameTaken)
}

func TestUsernames_CreateValidation(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	assertFailure(t, postJSON(t, h, `{"action":"createUsername"}`), service.MsgUsernameRequired)
	assertFailure(t, postJSON(t, h, `{"action":"createUsername","username":"ab"}`), service.MsgUsernameLength)
	assertFailure(t,
		postJSON(t, h, `{"action":"createUsername","username":"`+strings.Repeat("x", 31)+`"}`),
		service.MsgUsernameLength,
	)
}

// =============================================================================
// Votes
// =============================================================================

func votesOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	v, ok := body["votes"].(map[string]any)
	require.True(t, ok, "votes payload missing: %v", body)
	return v
}

func TestVotes_LikeDislikeRemove(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	body := postJSON(t, h, `{"action":"vote","businessId":"B1","username":"A","voteType":"like"}`)
	assertSuccess(t, body, MsgVoteRecorded)
	v := votesOf(t, body)
	assert.Equal(t, "B1", v["businessId"])
	assert.Equal(t, float64(1), v["likes"])
	assert.Equal(t, float64(0), v["dislikes"])
	assert.Equal(t, "like", v["userVote"])

	v = votesOf(t, postJSON(t, h, `{"action":"vote","businessId":"B1","username":"A","voteType":"dislike"}`))
	assert.Equal(t, float64(0), v["likes"])
	assert.Equal(t, float64(1), v["dislikes"])
	assert.Equal(t, "dislike", v["userVote"])

	v = votesOf(t, postJSON(t, h, `{"action":"vote","businessId":"B1","username":"A","voteType":"remove"}`))
	assert.Equal(t, float64(0), v["likes"])
	assert.Equal(t, float64(0), v["dislikes"])
	assert.Contains(t, v, "userVote")
	assert.Nil(t, v["userVote"])
}

func TestVotes_GetVotes(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	postJSON(t, h, `{"action":"vote","businessId":"B1","username":"A","voteType":"like"}`)
	postJSON(t, h, `{"action":"vote","businessId":"B1","username":"B","voteType":"like"}`)
	postJSON(t, h, `{"action":"vote","businessId":"B1","username":"C","voteType":"dislike"}`)

	body := get(t, h, url.Values{"action": {"getVotes"}, "businessId": {"B1"}, "username": {"C"}})
	assertSuccess(t, body, MsgVotesRetrieved)
	v := votesOf(t, body)
	assert.Equal(t, float64(2), v["likes"])
	assert.Equal(t, float64(1), v["dislikes"])
	assert.Equal(t, "dislike", v["userVote"])

	anon := votesOf(t, get(t, h, url.Values{"action": {"getVotes"}, "businessId": {"B1"}}))
	assert.Nil(t, anon["userVote"])
}

func TestVotes_Validation(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	assertFailure(t, get(t, h, url.Values{"action": {"getVotes"}}), service.MsgBusinessIDRequired)
	assertFailure(t, postJSON(t, h, `{"action":"vote","username":"A","voteType":"like"}`), service.MsgBusinessIDRequired)
	assertFailure(t, postJSON(t, h, `{"action":"vote","businessId":"B1","voteType":"like"}`), service.MsgUsernameRequired)
	assertFailure(t, postJSON(t, h, `{"action":"vote","businessId":"B1","username":"A","voteType":"love"}`), service.MsgInvalidVoteType)
}

func TestVotes_RemoveWithoutVoteIsNoop(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	body := postForm(t, h, url.Values{
		"action":     {"vote"},
		"businessId": {"B9"},
		"username":   {"A"},
		"voteType":   {"remove"},
	})
	assertSuccess(t, body, MsgVoteRecorded)
	v := votesOf(t, body)
	assert.Equal(t, float64(0), v["likes"])
	assert.Equal(t, float64(0), v["dislikes"])
}

// =============================================================================
// Reviews
// =============================================================================

func TestReviews_SubmitAndList(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	body := postJSON(t, h, `{"action":"submitReview","productId":"P1","username":"alice","rating":5,"reviewText":"Lovely roses"}`)
	assertSuccess(t, body, MsgReviewSubmitted)
	review := body["review"].(map[string]any)
	assert.Equal(t, "P1", review["productId"])
	assert.Equal(t, "alice", review["username"])
	assert.Equal(t, float64(5), review["rating"])
	assert.Equal(t, "Lovely roses", review["reviewText"])
	assert.NotEmpty(t, review["timestamp"])

	list := get(t, h, url.Values{"action": {"getReviews"}, "productId": {"P1"}, "username": {"alice"}})
	assertSuccess(t, list, MsgReviewsRetrieved)
	assert.Len(t, list["reviews"], 1)
	userReview := list["userReview"].(map[string]any)
	assert.Equal(t, "Lovely roses", userReview["reviewText"])

	other := get(t, h, url.Values{"action": {"getReviews"}, "productId": {"P1"}, "username": {"bob"}})
	assert.Contains(t, other, "userReview")
	assert.Nil(t, other["userReview"])
}

func TestReviews_EmptyListIsArray(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	list := get(t, h, url.Values{"action": {"getReviews"}, "productId": {"P404"}})
	assertSuccess(t, list, MsgReviewsRetrieved)
	assert.Equal(t, []any{}, list["reviews"])
}

func TestReviews_FormBodyWithCommentAndStringRating(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	body := postForm(t, h, url.Values{
		"action":    {"submitProductReview"},
		"productId": {"P1"},
		"username":  {"alice"},
		"rating":    {"4"},
		"comment":   {"Fresh and fragrant"},
	})
	assertSuccess(t, body, MsgReviewSubmitted)
	review := body["review"].(map[string]any)
	assert.Equal(t, float64(4), review["rating"])
	assert.Equal(t, "Fresh and fragrant", review["reviewText"])
}

func TestReviews_RatingOutOfRangeLeavesLedgerUnchanged(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	for _, rating := range []string{`0`, `6`, `"4.5"`, `4.5`, `"abc"`, `null`} {
		body := postJSON(t, h, `{"action":"submitReview","productId":"P1","username":"alice","rating":`+rating+`}`)
		assertFailure(t, body, service.MsgRatingOutOfRange)
	}

	list := get(t, h, url.Values{"action": {"getReviews"}, "productId": {"P1"}})
	assert.Empty(t, list["reviews"])
}

func TestReviews_WholeNumberFloatAccepted(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	body := postJSON(t, h, `{"action":"submitReview","productId":"P1","username":"alice","rating":"3.0"}`)
	assertSuccess(t, body, MsgReviewSubmitted)
}

func TestReviews_Validation(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	assertFailure(t, get(t, h, url.Values{"action": {"getReviews"}}), service.MsgProductIDRequired)
	assertFailure(t, get(t, h, url.Values{"action": {"getReviewSummary"}}), service.MsgProductIDRequired)
	assertFailure(t, get(t, h, url.Values{"action": {"getBusinessReviews"}}), service.MsgBusinessIDRequired)
	assertFailure(t, postJSON(t, h, `{"action":"submitReview","username":"a","rating":3}`), service.MsgProductIDRequired)
	assertFailure(t, postJSON(t, h, `{"action":"submitReview","productId":"P1","rating":3}`), service.MsgUsernameRequired)
	assertFailure(t, postJSON(t, h, `{"action":"submitBusinessReview","username":"a","rating":3}`), service.MsgBusinessIDRequired)
}

func TestReviews_Summary(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	postJSON(t, h, `{"action":"submitReview","productId":"P1","username":"a","rating":5}`)
	postJSON(t, h, `{"action":"submitReview","productId":"P1","username":"b","rating":3}`)
	postJSON(t, h, `{"action":"submitReview","productId":"P1","username":"c","rating":3}`)

	body := get(t, h, url.Values{"action": {"getReviewSummary"}, "productId": {"P1"}})
	assertSuccess(t, body, MsgSummaryRetrieved)
	s := body["summary"].(map[string]any)
	assert.Equal(t, "P1", s["productId"])
	assert.Equal(t, float64(3), s["totalReviews"])
	assert.InDelta(t, 11.0/3.0, s["averageRating"], 1e-9)
	assert.Equal(t, []any{float64(0), float64(0), float64(2), float64(0), float64(1)}, s["ratingCounts"])

	// Resubmitting the same review keeps one row and the same summary.
	postJSON(t, h, `{"action":"submitReview","productId":"P1","username":"a","rating":5}`)
	again := get(t, h, url.Values{"action": {"getReviewSummary"}, "productId": {"P1"}})
	assert.Equal(t, s, again["summary"])
}

func TestReviews_BusinessScope(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	body := postJSON(t, h, `{"action":"submitBusinessReview","businessId":"B1","username":"alice","rating":"2","comment":"Late delivery"}`)
	assertSuccess(t, body, MsgReviewSubmitted)
	review := body["review"].(map[string]any)
	assert.Equal(t, "B1", review["businessId"])
	assert.NotContains(t, review, "productId")

	page := get(t, h, url.Values{"action": {"getBusinessReviews"}, "businessId": {"B1"}, "username": {"alice"}})
	assertSuccess(t, page, MsgReviewsRetrieved)
	assert.Len(t, page["reviews"], 1)
	assert.NotNil(t, page["userReview"])
	summary := page["summary"].(map[string]any)
	assert.Equal(t, "B1", summary["businessId"])
	assert.Equal(t, float64(1), summary["totalReviews"])

	// Business and product scopes are separate ledgers.
	products := get(t, h, url.Values{"action": {"getProductReviews"}, "productId": {"B1"}})
	assert.Empty(t, products["reviews"])

	s := get(t, h, url.Values{"action": {"getBusinessReviewSummary"}, "businessId": {"B1"}})
	assertSuccess(t, s, MsgSummaryRetrieved)
	assert.Equal(t, float64(2), s["summary"].(map[string]any)["averageRating"])
}

func TestReviews_StorefrontShape(t *testing.T) {
	h := newTestRouter(t, memoryStores())

	body := postForm(t, h, url.Values{
		"action":     {"submitProductReview"},
		"productId":  {"P1"},
		"businessId": {"B7"},
		"username":   {"alice"},
		"rating":     {"4"},
		"comment":    {"Fresh"},
	})
	assertSuccess(t, body, MsgReviewSubmitted)
	review := body["review"].(map[string]any)
	assert.Equal(t, "P1", review["productId"])
	assert.Equal(t, "B7", review["businessId"])
	assert.Equal(t, "Fresh", review["comment"])
	assert.NotEmpty(t, review["id"])
	require.IsType(t, float64(0), review["timestamp"])
	assert.Positive(t, review["timestamp"].(float64))
	assert.Equal(t, review["timestamp"], review["createdAt"])

	page := get(t, h, url.Values{"action": {"getProductReviews"}, "productId": {"P1"}, "businessId": {"B7"}, "username": {"alice"}})
	assertSuccess(t, page, MsgReviewsRetrieved)
	reviews := page["reviews"].([]any)
	require.Len(t, reviews, 1)
	listed := reviews[0].(map[string]any)
	assert.Equal(t, "Fresh", listed["comment"])
	assert.Equal(t, "B7", listed["businessId"])
	assert.Equal(t, review["timestamp"], listed["timestamp"])
	assert.Equal(t, "Fresh", page["userReview"].(map[string]any)["comment"])

	postForm(t, h, url.Values{
		"action":     {"submitBusinessReview"},
		"businessId": {"B1"},
		"username":   {"alice"},
		"rating":     {"4"},
		"comment":    {"nice"},
	})
	biz := get(t, h, url.Values{"action": {"getBusinessReviews"}, "businessId": {"B1"}})
	bizReview := biz["reviews"].([]any)[0].(map[string]any)
	assert.Equal(t, "nice", bizReview["comment"])
	assert.Equal(t, "B1", bizReview["businessId"])
	assert.IsType(t, float64(0), bizReview["timestamp"])
	assert.Nil(t, biz["userReview"])

	// getReviews keeps the reviewText / RFC 3339 shape.
	plain := get(t, h, url.Values{"action": {"getReviews"}, "productId": {"P1"}})
	plainReview := plain["reviews"].([]any)[0].(map[string]any)
	assert.Equal(t, "Fresh", plainReview["reviewText"])
	assert.NotContains(t, plainReview, "comment")
	assert.IsType(t, "", plainReview["timestamp"])
}

// =============================================================================
// Storage failures
// =============================================================================

type brokenVoteStore struct {
	*memory.VoteStore
}

func (brokenVoteStore) ListByBusiness(context.Context, string) ([]domain.Vote, error) {
	return nil, errors.New("connection reset")
}

func TestDispatch_StorageFailureIsServerError(t *testing.T) {
	s := memoryStores()
	s.votes = brokenVoteStore{memory.NewVoteStore()}
	h := newTestRouter(t, s)

	body := get(t, h, url.Values{"action": {"getVotes"}, "businessId": {"B1"}})
	assertFailure(t, body, service.MsgServerError)
}
