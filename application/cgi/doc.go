// Package cgi runs Common Gateway Interface programs.
//
// A program gets its request metadata through environment variables, reads
// the request body from standard input and writes the response body to
// standard output. Both streams are plain pipes owned by [Process].
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3875
package cgi
