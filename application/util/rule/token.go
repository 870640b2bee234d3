package rule

import (
	"bytes"

	"golang.org/x/net/http/httpguts"
)

// IsValidToken reports whether s is a non-empty token.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func IsValidToken(s string) bool {
	return httpguts.ValidHeaderFieldName(s)
}

// IsValidFieldValue reports whether s can be carried as a field value.
// CTLs other than HTAB are rejected, which covers NUL, CR and LF.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.5
func IsValidFieldValue(s string) bool {
	return httpguts.ValidHeaderFieldValue(s)
}

// IsValidReasonPhrase reports whether s can be used as a reason phrase.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4
func IsValidReasonPhrase(s string) bool {
	return IsValidFieldValue(s)
}

// Unquote unquotes token if it was quoted with double quotes.
// If quoted string includes escaped character, it will be un-escaped.
func Unquote(token []byte) []byte {
	quoted := false
	if len(token) >= 2 {
		// Unquote the token if it's wrapped with quotes.
		first, last := 0, len(token)-1
		if token[first] == '"' && token[last] == '"' {
			token = token[first+1 : last]
			quoted = true
		}
	}

	if !quoted {
		return bytes.Clone(token)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(token)))
	for idx := 0; idx < len(token); idx++ {
		c := token[idx]
		if c == '\\' && idx+1 < len(token) {
			// quoted-pair: keep the escaped byte only.
			idx++
			c = token[idx]
		}
		buf.WriteByte(c)
	}

	return buf.Bytes()
}
