package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxBodyBytes caps write-style request bodies.
const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid json body")

// params holds the action parameters of one request regardless of where they
// were sent: query string, JSON object or form body.
type params map[string]any

func queryParams(values url.Values) params {
	p := make(params, len(values))
	for k, v := range values {
		if len(v) > 0 {
			p[k] = v[0]
		}
	}
	return p
}

// bodyParams reads a write-style request. Form bodies are accepted as sent by
// the web client; anything else must be a JSON object. Query parameters fill
// in keys the body does not set.
func bodyParams(w http.ResponseWriter, r *http.Request) (params, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var p params
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		p = queryParams(r.PostForm)
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p); err != nil || p == nil {
			return nil, errInvalidJSON
		}
	}

	for k, v := range r.URL.Query() {
		if _, ok := p[k]; !ok && len(v) > 0 {
			p[k] = v[0]
		}
	}
	return p, nil
}

// str returns the value of key as a string. Numbers and booleans are
// formatted; objects, arrays and null read as empty.
func (p params) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// reviewText accepts both names the clients use for the review body.
func (p params) reviewText() string {
	if _, ok := p["reviewText"]; ok {
		return p.str("reviewText")
	}
	return p.str("comment")
}

// rating reads an integer rating sent as a JSON number or a numeric string.
// Anything that is not a whole number reads as 0, which fails validation.
func (p params) rating() int {
	var raw string
	switch v := p["rating"].(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	default:
		return 0
	}

	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(f)
}
