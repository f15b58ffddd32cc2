package semantic

import (
	"strings"

	"tinyhttpd/application/http"
	"tinyhttpd/application/http/semantic/status"
	"tinyhttpd/application/util/rule"
	"tinyhttpd/application/util/uri"

	"github.com/pkg/errors"
)

// Request is a request the router can act on.
type Request struct {
	Method Method

	// RawPath is the target as sent, cut at the query and at MaxPathLength.
	RawPath string
	// Path is RawPath percent-decoded with dot segments removed.
	// It always starts with '/'.
	Path string

	Query    string
	HasQuery bool

	ContentLength    uint
	HasContentLength bool
	ContentType      string

	Body []byte

	// Target is the filesystem path the router resolved Path to.
	Target string
}

type ParseRequestOptions struct {
	// MaxPathLength truncates longer request targets.
	MaxPathLength uint
}

var DefaultParseRequestOptions = ParseRequestOptions{MaxPathLength: 255}

// RequestFrom interprets raw.
// Failures are [status.Error] values: 501 for an unsupported method,
// 400 for a target that doesn't decode.
func RequestFrom(raw *http.Request, opts ParseRequestOptions) (*Request, error) {
	var request Request

	methodTok, rest := rule.NextToken(raw.Line)

	method, ok := ParseMethod(string(methodTok))
	if !ok {
		err := errors.Errorf("method %q", methodTok)
		return nil, status.NewError(err, status.NotImplemented)
	}
	request.Method = method

	targetTok, _ := rule.NextToken(rest)
	target := string(targetTok)
	if opts.MaxPathLength > 0 && uint(len(target)) > opts.MaxPathLength {
		target = target[:opts.MaxPathLength]
	}

	if method == MethodGet {
		if path, query, found := strings.Cut(target, "?"); found {
			target = path
			request.Query = query
			request.HasQuery = true
		}
	}
	request.RawPath = target

	path, err := uri.Unescape(target)
	if err != nil {
		return nil, status.NewError(errors.Wrap(err, "decoding path"), status.BadRequest)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	request.Path = uri.RemoveDotSegments(path)

	request.ContentLength, request.HasContentLength = raw.ContentLength()
	if v, ok := raw.Header("Content-Type"); ok {
		request.ContentType = string(v)
	}
	request.Body = raw.Body

	return &request, nil
}

// IsCGI reports whether the request itself asks for script execution,
// before looking at the target.
func (r *Request) IsCGI() bool {
	return r.Method == MethodPost || r.HasQuery
}
