package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/event"
	handler "github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/handler/http"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository/memory"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/service"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/health"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/middleware"
)

func newHubServer(t *testing.T) string {
	t.Helper()
	l := slog.New(slog.NewJSONHandler(io.Discard, nil))
	votes, reviews, usernames := memory.NewVoteStore(), memory.NewReviewStore(), memory.NewUsernameStore()
	pub := event.Noop{}

	hub := handler.NewHubHandler(
		service.NewVoteService(votes, pub, l),
		service.NewReviewService(reviews, pub, l),
		service.NewUsernameService(usernames, pub, l),
		service.NewSchemaService(l, votes, reviews, usernames),
		l,
	)
	srv := httptest.NewServer(handler.NewRouter(hub, health.NewHandler(), handler.RouterConfig{
		ServiceName: "hubctl-test",
		CORS:        middleware.DefaultCORSConfig(),
	}, l))
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1/hub"
}

type session struct {
	t        *testing.T
	endpoint string
	state    string
}

func newSession(t *testing.T, endpoint string) *session {
	return &session{t: t, endpoint: endpoint, state: filepath.Join(t.TempDir(), "identity.json")}
}

func (s *session) run(args ...string) (int, string, string) {
	s.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-endpoint", s.endpoint, "-state", s.state}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_NoCommandPrintsUsage(t *testing.T) {
	code, _, stderr := newSession(t, "http://127.0.0.1:1").run()

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: hubctl")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := newSession(t, "http://127.0.0.1:1").run("explode")

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "commands:")
}

func TestRun_WhoamiCreatesStableIdentity(t *testing.T) {
	s := newSession(t, "http://127.0.0.1:1")

	code, first, _ := s.run("whoami")
	require.Equal(t, 0, code)
	assert.Contains(t, first, "username: (none)")

	_, second, _ := s.run("whoami")
	assert.Equal(t, first, second)
}

func TestRun_SetUsername(t *testing.T) {
	endpoint := newHubServer(t)
	alice := newSession(t, endpoint)

	code, out, stderr := alice.run("set-username", "  alice ")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "username set to alice")

	_, out, _ = alice.run("whoami")
	assert.Contains(t, out, "username: alice")

	other := newSession(t, endpoint)
	code, _, stderr = other.run("set-username", "alice")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Username already exists")

	_, out, _ = other.run("whoami")
	assert.Contains(t, out, "username: (none)")
}

func TestRun_SetUsernameValidatesLocally(t *testing.T) {
	s := newSession(t, "http://127.0.0.1:1")

	code, _, stderr := s.run("set-username", "ab")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Username must be between 3 and 30 characters")
}

func TestRun_ClearUsername(t *testing.T) {
	s := newSession(t, newHubServer(t))
	code, _, _ := s.run("set-username", "alice")
	require.Equal(t, 0, code)

	code, out, _ := s.run("clear-username")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "username cleared")

	_, out, _ = s.run("whoami")
	assert.Contains(t, out, "username: (none)")
}

func TestRun_VoteRequiresUsername(t *testing.T) {
	s := newSession(t, newHubServer(t))

	code, _, stderr := s.run("vote", "B1", "like")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no username set")
}

func TestRun_Votes(t *testing.T) {
	s := newSession(t, newHubServer(t))
	code, _, _ := s.run("set-username", "alice")
	require.Equal(t, 0, code)

	code, out, stderr := s.run("vote", "B1", "like")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "B1: 1 likes, 0 dislikes (your vote: like)\n", out)

	code, _, stderr = s.run("vote", "B1", "meh")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Invalid vote type")

	_, out, _ = s.run("vote", "B1", "remove")
	assert.Equal(t, "B1: 0 likes, 0 dislikes (your vote: -)\n", out)

	_, out, _ = s.run("votes", "B1")
	assert.Equal(t, "B1: 0 likes, 0 dislikes (your vote: -)\n", out)
}

func TestRun_Reviews(t *testing.T) {
	s := newSession(t, newHubServer(t))
	code, _, _ := s.run("set-username", "alice")
	require.Equal(t, 0, code)

	code, out, stderr := s.run("review", "product", "P1", "5", "Gorgeous", "lilies")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "review saved: product P1 5/5\n", out)

	code, _, stderr = s.run("review", "product", "P1", "9")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Rating must be between 1 and 5")

	code, _, stderr = s.run("review", "shop", "P1", "3")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown scope")

	_, out, _ = s.run("reviews", "product", "P1")
	assert.Contains(t, out, "* 5/5 alice")
	assert.Contains(t, out, "Gorgeous lilies")

	_, out, _ = s.run("summary", "P1")
	assert.Contains(t, out, "P1: 5.00 average from 1 reviews")
	assert.Contains(t, out, "5★ 1")

	_, out, _ = s.run("reviews", "business", "B1")
	assert.Equal(t, "no reviews yet\n", out)

	code, _, _ = s.run("review", "business", "B1", "4")
	require.Equal(t, 0, code)
	_, out, _ = s.run("summary", "business", "B1")
	assert.Contains(t, out, "B1: 4.00 average from 1 reviews")
}
