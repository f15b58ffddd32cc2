// Package http implements the HTTP/1.0 wire format used by the server:
// an incremental request parser fed from non-blocking reads, and the
// response encoder and decoder.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc1945
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
