package http1

import (
	"crypto/tls"
	"time"

	"network-fetch/application/http"
)

type Options struct {
	Send    SendOptions
	Receive ReceiveOptions
	Timeout TimeoutOptions

	// TLSConfig is used for https URLs. ServerName defaults to the URL host.
	TLSConfig *tls.Config
}

type SendOptions struct {
	Encode http.EncodeOptions
}

type ReceiveOptions struct {
	Decode http.DecodeOptions
}

// Zero disables the corresponding timeout.
type TimeoutOptions struct {
	// Dial bounds connecting, TLS handshake included.
	Dial time.Duration
	// Write bounds writing the whole request.
	Write time.Duration
	// Read bounds every read of the response, head and body alike.
	Read time.Duration
}

var DefaultOptions = Options{
	Send:    SendOptions{Encode: http.DefaultEncodeOptions},
	Receive: ReceiveOptions{Decode: http.DefaultDecodeOptions},
	Timeout: TimeoutOptions{
		Dial:  30 * time.Second,
		Write: 30 * time.Second,
		Read:  60 * time.Second,
	},
}
