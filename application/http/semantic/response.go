package semantic

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"tinyhttpd/application/http"
	"tinyhttpd/application/http/semantic/status"
)

const ServerName = "tinyhttpd/0.0.1"

const (
	ContentTypeHTML     = "text/html"
	ContentTypeHTMLUTF8 = "text/html; charset=utf-8"
)

// Response is the head of a reply plus a body of known length.
type Response struct {
	Status        status.Status
	ContentType   string
	ContentLength int64

	Body io.Reader
}

// NewResponse builds a 200 response.
func NewResponse(contentType string, length int64, body io.Reader) *Response {
	return &Response{
		Status:        status.OK,
		ContentType:   contentType,
		ContentLength: length,
		Body:          body,
	}
}

// ErrorResponse builds the HTML error page for s.
// Statuses without a canned page are answered as 500.
func ErrorResponse(s status.Status) *Response {
	if !status.IsErrorStatus(s.Code) {
		s = status.InternalServerError
	}

	body := errorPage(s)

	return &Response{
		Status:        s,
		ContentType:   ContentTypeHTMLUTF8,
		ContentLength: int64(len(body)),
		Body:          bytes.NewReader(body),
	}
}

func errorPage(s status.Status) []byte {
	return []byte(fmt.Sprintf(
		"<html><head><title>%[1]s</title></head>"+
			"<body><center><h1>%[1]s</h1></center><hr><center>%[2]s</center></body></html>\r\n",
		s, ServerName,
	))
}

func (r *Response) RawResponse() http.Response {
	return http.Response{
		StatusLine: http.StatusLine{
			Version:      http.Version10,
			StatusCode:   r.Status.Code,
			ReasonPhrase: r.Status.ReasonPhrase,
		},
		Headers: []http.Field{
			{Name: []byte("Server"), Value: []byte(ServerName)},
			{Name: []byte("Content-Type"), Value: []byte(r.ContentType)},
			{Name: []byte("Content-Length"), Value: []byte(strconv.FormatInt(r.ContentLength, 10))},
		},
		Body: r.Body,
	}
}
