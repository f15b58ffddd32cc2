package cgi

import (
	"net/netip"
	"os"
	"strconv"
	"strings"
)

const defaultPath = "/bin:/usr/bin:/usr/local/bin"

// Meta is the request information exposed to a program.
type Meta struct {
	Method string

	// Query is passed for GET requests, ContentLength for POST.
	Query         string
	ContentLength uint
	ContentType   string

	ScriptName     string
	ScriptFilename string

	RemoteAddr netip.AddrPort

	ServerSoftware string
	ServerProtocol string
}

// Env builds the program environment for m.
// With inherit set the server's own environment comes first; request
// variables always win over inherited ones.
func (m Meta) Env(inherit bool) []string {
	var env []string
	if inherit {
		env = append(env, os.Environ()...)
	} else {
		path := os.Getenv("PATH")
		if path == "" {
			path = defaultPath
		}
		env = append(env, "PATH="+path)
	}

	env = append(env,
		"GATEWAY_INTERFACE=CGI/1.1",
		"SERVER_SOFTWARE="+m.ServerSoftware,
		"SERVER_PROTOCOL="+m.ServerProtocol,
		"REQUEST_METHOD="+m.Method,
		"SCRIPT_NAME="+m.ScriptName,
		"SCRIPT_FILENAME="+m.ScriptFilename,
	)

	if strings.EqualFold(m.Method, "POST") {
		env = append(env, "CONTENT_LENGTH="+strconv.FormatUint(uint64(m.ContentLength), 10))
	} else {
		env = append(env, "QUERY_STRING="+m.Query)
	}

	if m.ContentType != "" {
		env = append(env, "CONTENT_TYPE="+m.ContentType)
	}

	if m.RemoteAddr.IsValid() {
		env = append(env,
			"REMOTE_ADDR="+m.RemoteAddr.Addr().Unmap().String(),
			"REMOTE_PORT="+strconv.FormatUint(uint64(m.RemoteAddr.Port()), 10),
		)
	}

	return removeLeadingDuplicates(env)
}

// removeLeadingDuplicates keeps the last assignment of every variable.
func removeLeadingDuplicates(env []string) (ret []string) {
	for i, e := range env {
		found := false
		if eq := strings.IndexByte(e, '='); eq != -1 {
			keq := e[:eq+1]
			for _, e2 := range env[i+1:] {
				if strings.HasPrefix(e2, keq) {
					found = true
					break
				}
			}
		}
		if !found {
			ret = append(ret, e)
		}
	}
	return
}
