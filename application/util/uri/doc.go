// Package uri implements the parts of Uniform Resource Identifier (URI)
// handling needed to map a request path onto the file system.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986
package uri
