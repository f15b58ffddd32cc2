package status

import "fmt"

type Status struct {
	Code         uint
	ReasonPhrase string
}

// Successful 2XX
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.3
var (
	OK = add(Status{200, "OK"})
)

// Client Error 4xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.5
var (
	BadRequest   = add(Status{400, "Bad Request"})
	Unauthorized = add(Status{401, "Unauthorized"})
	Forbidden    = add(Status{403, "Forbidden"})
	NotFound     = add(Status{404, "Not Found"})
)

// Server Error 5xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.6
var (
	InternalServerError = add(Status{500, "Internal Server Error"})
	NotImplemented      = add(Status{501, "Not Implemented"})
	BadGateway          = add(Status{502, "Bad Gateway"})
	ServiceUnavailable  = add(Status{503, "Service Unavailable"})
)

var sm = make(map[uint]*Status)

func add(status Status) Status {
	sm[status.Code] = &status
	return status
}

// FromCode looks up a known status.
// Unknown codes come back with an empty reason phrase and ok == false.
func FromCode(code uint) (status Status, ok bool) {
	s, ok := sm[code]
	if !ok {
		return Status{Code: code, ReasonPhrase: ""}, false
	}

	return *s, true
}

// IsErrorStatus reports whether the server has a canned error page for code.
func IsErrorStatus(code uint) bool {
	_, ok := sm[code]
	return ok && code >= 400
}

func (s Status) String() string {
	return fmt.Sprintf("%d %s", s.Code, s.ReasonPhrase)
}
