// Package http is the HTTP/1.1 wire codec used by the fetch transport:
// it writes request heads and reads response heads. Body framing is left to
// the caller.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
