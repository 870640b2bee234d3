package fetch

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const DefaultMaxRedirects = 20

type Options struct {
	// BaseURL resolves relative request URLs. Empty means every request
	// URL must be absolute.
	BaseURL string `env:"BASE_URL"`

	// UserAgent is sent unless the request sets one.
	UserAgent string `env:"USER_AGENT"`

	// RequestIDHeader names a header that carries the dispatch id.
	// Empty disables it.
	RequestIDHeader string `env:"REQUEST_ID_HEADER"`

	// MaxRedirects bounds the redirects followed per fetch.
	// Zero or less means DefaultMaxRedirects.
	MaxRedirects int `env:"MAX_REDIRECTS"`

	// UseReceivedStatusText keeps the reason phrase sent by the peer.
	// Otherwise the registered text for the status is used when there is one.
	UseReceivedStatusText bool `env:"USE_RECEIVED_STATUS_TEXT"`
}

var DefaultOptions = Options{
	MaxRedirects: DefaultMaxRedirects,
}

// LoadOptions reads options from the environment, after loading the given
// dotenv files into it. Fields not set in the environment keep their defaults.
func LoadOptions(opts env.Options, files ...string) (Options, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Options{}, errors.Wrap(err, "loading env files")
		}
	}

	o := DefaultOptions
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return Options{}, errors.Wrap(err, "parsing options from env")
	}

	return o, nil
}

func (o Options) maxRedirects() int {
	if o.MaxRedirects <= 0 {
		return DefaultMaxRedirects
	}
	return o.MaxRedirects
}
