package fetch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := LoadOptions(env.Options{Prefix: "FETCH_TEST_DEFAULTS_"})
		require.NoError(t, err)
		assert.Equal(t, DefaultOptions, opts)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("FETCH_TEST_ENV_BASE_URL", "https://api.example.com/")
		t.Setenv("FETCH_TEST_ENV_USER_AGENT", "network-fetch/1.0")
		t.Setenv("FETCH_TEST_ENV_MAX_REDIRECTS", "3")
		t.Setenv("FETCH_TEST_ENV_USE_RECEIVED_STATUS_TEXT", "true")

		opts, err := LoadOptions(env.Options{Prefix: "FETCH_TEST_ENV_"})
		require.NoError(t, err)

		assert.Equal(t, Options{
			BaseURL:               "https://api.example.com/",
			UserAgent:             "network-fetch/1.0",
			MaxRedirects:          3,
			UseReceivedStatusText: true,
		}, opts)
	})

	t.Run("dotenv file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte(
			"FETCH_TEST_FILE_REQUEST_ID_HEADER=X-Request-Id\nFETCH_TEST_FILE_MAX_REDIRECTS=7\n",
		), 0o600))
		t.Cleanup(func() {
			os.Unsetenv("FETCH_TEST_FILE_REQUEST_ID_HEADER")
			os.Unsetenv("FETCH_TEST_FILE_MAX_REDIRECTS")
		})

		opts, err := LoadOptions(env.Options{Prefix: "FETCH_TEST_FILE_"}, path)
		require.NoError(t, err)

		assert.Equal(t, "X-Request-Id", opts.RequestIDHeader)
		assert.Equal(t, 7, opts.MaxRedirects)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadOptions(env.Options{}, filepath.Join(t.TempDir(), "nope.env"))
		assert.Error(t, err)
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Setenv("FETCH_TEST_BAD_MAX_REDIRECTS", "many")

		_, err := LoadOptions(env.Options{Prefix: "FETCH_TEST_BAD_"})
		assert.Error(t, err)
	})
}

func TestMaxRedirects(t *testing.T) {
	testcases := []struct {
		desc     string
		value    int
		expected int
	}{
		{desc: "unset", value: 0, expected: DefaultMaxRedirects},
		{desc: "negative", value: -1, expected: DefaultMaxRedirects},
		{desc: "set", value: 5, expected: 5},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, Options{MaxRedirects: tc.value}.maxRedirects())
		})
	}
}
