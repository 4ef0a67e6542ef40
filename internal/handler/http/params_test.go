package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Rating(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"json integer", json.Number("4"), 4},
		{"json whole float", json.Number("5.0"), 5},
		{"json fraction", json.Number("4.5"), 0},
		{"numeric string", "3", 3},
		{"padded string", " 2 ", 2},
		{"fraction string", "2.5", 0},
		{"word", "five", 0},
		{"bool", true, 0},
		{"missing", nil, 0},
		{"huge", json.Number("1e300"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params{}
			if tt.value != nil {
				p["rating"] = tt.value
			}
			assert.Equal(t, tt.want, p.rating())
		})
	}
}

func TestParams_ReviewTextPrefersReviewText(t *testing.T) {
	assert.Equal(t, "a", params{"reviewText": "a", "comment": "b"}.reviewText())
	assert.Equal(t, "b", params{"comment": "b"}.reviewText())
	assert.Equal(t, "", params{}.reviewText())
}

func TestParams_StrFormatsScalars(t *testing.T) {
	p := params{"n": json.Number("42"), "b": false, "o": map[string]any{"x": 1}}

	assert.Equal(t, "42", p.str("n"))
	assert.Equal(t, "false", p.str("b"))
	assert.Equal(t, "", p.str("o"))
	assert.Equal(t, "", p.str("missing"))
}

func TestBodyParams_QueryFillsMissingKeys(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hub?action=vote&username=query",
		strings.NewReader(`{"username":"body"}`))
	req.Header.Set("Content-Type", "application/json")

	p, err := bodyParams(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "vote", p.str("action"))
	assert.Equal(t, "body", p.str("username"))
}

func TestBodyParams_MissingContentTypeIsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hub", strings.NewReader(`{"action":"vote"}`))

	p, err := bodyParams(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "vote", p.str("action"))
}

func TestBodyParams_FormCharset(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hub", strings.NewReader("action=vote&rating=4"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	p, err := bodyParams(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "vote", p.str("action"))
	assert.Equal(t, 4, p.rating())
}
