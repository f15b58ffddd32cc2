package semantic

import "strings"

type Method string

// Only the two methods of HTTP/1.0 the server acts on.
// Reference: https://datatracker.ietf.org/doc/html/rfc1945#section-8
const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// ParseMethod matches s case-insensitively against the supported methods.
func ParseMethod(s string) (Method, bool) {
	switch {
	case strings.EqualFold(s, string(MethodGet)):
		return MethodGet, true
	case strings.EqualFold(s, string(MethodPost)):
		return MethodPost, true
	}
	return Method(s), false
}
