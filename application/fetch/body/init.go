package body

import (
	"bytes"
	"io"
	"net/url"
)

const (
	ContentTypeText = "text/plain;charset=UTF-8"
	ContentTypeForm = "application/x-www-form-urlencoded;charset=UTF-8"
)

// Init describes the payload a message is constructed with.
// The zero value means no body at all.
type Init struct {
	source      Source
	contentType string
}

// IsZero reports whether no body was supplied.
func (i Init) IsZero() bool { return i.source == nil }

// ContentType is the type inferred from the payload kind, if any.
func (i Init) ContentType() string { return i.contentType }

func Text(s string) Init {
	return Init{source: bytesSource{b: []byte(s)}, contentType: ContentTypeText}
}

// Binary carries raw bytes. No content type is inferred.
func Binary(b []byte) Init {
	return Init{source: bytesSource{b: bytes.Clone(b)}}
}

// Blob carries raw bytes of a known type.
func Blob(b []byte, contentType string) Init {
	return Init{source: bytesSource{b: bytes.Clone(b)}, contentType: contentType}
}

// Form carries url-encoded form fields.
func Form(v url.Values) Init {
	return Init{source: bytesSource{b: []byte(v.Encode())}, contentType: ContentTypeForm}
}

// Stream reads the payload from r on first use.
// r is closed once drained if it is an [io.Closer].
func Stream(r io.Reader) Init {
	if r == nil {
		return Init{}
	}
	return Init{source: newStreamSource(r)}
}

func FromSource(s Source, contentType string) Init {
	return Init{source: s, contentType: contentType}
}
