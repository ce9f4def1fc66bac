// pkg/httplog/serialize.go
package httplog

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/fyrsmithlabs/logkit/pkg/logging"
)

// headerFields lower-cases names and joins repeated values with ", ".
func headerFields(h http.Header) logging.Fields {
	out := make(logging.Fields, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

// serializeRequest builds the "req" object. body is the snapshot taken before
// the handler ran.
func serializeRequest(r *http.Request, id string, body []byte) logging.Fields {
	headers := headerFields(r.Header)
	if r.Host != "" {
		headers["host"] = r.Host
	}
	req := logging.Fields{
		"id":            id,
		"method":        r.Method,
		"url":           r.URL.RequestURI(),
		"headers":       headers,
		"remoteAddress": r.RemoteAddr,
	}
	if v, ok := parseRequestBody(r.Header.Get("Content-Type"), body); ok {
		req["body"] = v
	}
	return req
}

// serializeResponse builds the "res" object. body is attached by the caller.
func serializeResponse(status int, h http.Header) logging.Fields {
	return logging.Fields{
		"statusCode": status,
		"headers":    headerFields(h),
	}
}

// parseRequestBody decodes JSON and form bodies. Anything else is omitted.
func parseRequestBody(contentType string, body []byte) (any, bool) {
	if len(body) == 0 {
		return nil, false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	switch {
	case isJSON(mediaType):
		return parseJSON(body)
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, false
		}
		form := make(logging.Fields, len(values))
		for k, v := range values {
			if len(v) == 1 {
				form[k] = v[0]
			} else {
				form[k] = v
			}
		}
		return form, true
	}
	return nil, false
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// parseJSON decodes one JSON value into plain maps and slices.
func parseJSON(body []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return v, true
}

// snapshotBody reads up to limit bytes of the request body and puts them back
// in front of the unread remainder. ok is false when nothing usable was read.
func snapshotBody(r *http.Request, limit int) (body []byte, ok bool) {
	if r.Body == nil || r.Body == http.NoBody || !loggableBody(r.Header.Get("Content-Type")) {
		return nil, false
	}
	reader := io.Reader(r.Body)
	if limit > 0 {
		reader = io.LimitReader(r.Body, int64(limit)+1)
	}
	buf, err := io.ReadAll(reader)
	r.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), closer: r.Body}
	if err != nil || limit > 0 && len(buf) > limit {
		return nil, false
	}
	return buf, true
}

func loggableBody(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return isJSON(mediaType) || mediaType == "application/x-www-form-urlencoded"
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error {
	return b.closer.Close()
}
