package body

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"network-fetch/lib/future"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func await[T any](t *testing.T, f *future.Future[T], err error) T {
	t.Helper()
	require.NoError(t, err)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	return v
}

type closeRecorder struct {
	io.Reader
	closed atomic.Bool
}

func (c *closeRecorder) Close() error {
	c.closed.Store(true)
	return nil
}

// countingSource shares its counter with its clones.
type countingSource struct {
	b         []byte
	snapshots int
}

func (c *countingSource) Snapshot() ([]byte, error) {
	c.snapshots++
	return c.b, nil
}

func (c *countingSource) Clone() (Source, error) { return c, nil }

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestInitContentType(t *testing.T) {
	testcases := []struct {
		desc     string
		init     Init
		expected string
	}{
		{desc: "text", init: Text("I work out"), expected: ContentTypeText},
		{desc: "binary", init: Binary([]byte{1, 2}), expected: ""},
		{desc: "blob", init: Blob([]byte("test"), "image/png"), expected: "image/png"},
		{desc: "blob without type", init: Blob([]byte("test"), ""), expected: ""},
		{desc: "form", init: Form(url.Values{"a": {"1"}}), expected: ContentTypeForm},
		{desc: "stream", init: Stream(strings.NewReader("x")), expected: ""},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.False(t, tc.init.IsZero())
			assert.Equal(t, tc.expected, tc.init.ContentType())
		})
	}

	assert.True(t, Init{}.IsZero())
	assert.True(t, Stream(nil).IsZero())
}

func TestBodyExtract(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		b := New(Text("hello world."))
		assert.Equal(t, "hello world.", await(t, b.Text()))
	})

	t.Run("bytes", func(t *testing.T) {
		b := New(Binary([]byte{0, 1, 2}))
		assert.Equal(t, []byte{0, 1, 2}, await(t, b.Bytes()))
	})

	t.Run("json", func(t *testing.T) {
		b := New(Text(`{"wiggles": 5, "foo": "bar"}`))
		v := await(t, b.JSON())
		assert.Equal(t, map[string]any{"wiggles": float64(5), "foo": "bar"}, v)
	})

	t.Run("form", func(t *testing.T) {
		b := New(Form(url.Values{"a": {"1"}, "b": {"2", "3"}}))
		assert.Equal(t, url.Values{"a": {"1"}, "b": {"2", "3"}}, await(t, b.Form()))
	})

	t.Run("stream", func(t *testing.T) {
		r := &closeRecorder{Reader: strings.NewReader("streamed")}
		b := New(Stream(r))
		assert.Equal(t, "streamed", await(t, b.Text()))
		assert.True(t, r.closed.Load(), "drained stream should be closed")
	})

	t.Run("null body", func(t *testing.T) {
		b := New(Init{})
		assert.False(t, b.HasBody())

		f, err := b.Text()
		require.NoError(t, err)
		assert.True(t, f.Settled(), "null body settles without reading")
		assert.Equal(t, "", await(t, f, err))
		assert.True(t, b.BodyUsed())
	})

	t.Run("null body as json", func(t *testing.T) {
		f, err := New(Init{}).JSON()
		require.NoError(t, err)
		assert.True(t, f.Settled())

		_, err = f.Await(context.Background())
		assert.ErrorIs(t, err, ErrMalformedJSON)
	})

	t.Run("custom source", func(t *testing.T) {
		src := &countingSource{b: []byte("custom")}
		init := FromSource(src, "application/x-custom")
		assert.Equal(t, "application/x-custom", init.ContentType())

		b := New(init)
		dup, err := b.Clone()
		require.NoError(t, err)

		assert.Equal(t, "custom", await(t, b.Text()))
		assert.Equal(t, "custom", await(t, dup.Text()))
		assert.Equal(t, 2, src.snapshots)
	})

	t.Run("binary input is copied", func(t *testing.T) {
		raw := []byte("abc")
		b := New(Binary(raw))
		raw[0] = 'x'
		assert.Equal(t, "abc", await(t, b.Text()))
	})
}

func TestBodyAsyncFailures(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		b := New(Text("{not json"))

		f, err := b.JSON()
		require.NoError(t, err, "parse errors must not be synchronous")

		_, err = f.Await(context.Background())
		assert.ErrorIs(t, err, ErrMalformedJSON)
	})

	t.Run("malformed form", func(t *testing.T) {
		b := New(Text("a=%zz"))

		f, err := b.Form()
		require.NoError(t, err)

		_, err = f.Await(context.Background())
		assert.ErrorIs(t, err, ErrMalformedForm)
	})

	t.Run("stream read error", func(t *testing.T) {
		b := New(Stream(failingReader{}))

		f, err := b.Text()
		require.NoError(t, err)

		_, err = f.Await(context.Background())
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestBodySingleConsumption(t *testing.T) {
	extractors := map[string]func(b *Body) error{
		"text":  func(b *Body) error { _, err := b.Text(); return err },
		"bytes": func(b *Body) error { _, err := b.Bytes(); return err },
		"json":  func(b *Body) error { _, err := b.JSON(); return err },
		"form":  func(b *Body) error { _, err := b.Form(); return err },
	}

	for firstName, first := range extractors {
		for secondName, second := range extractors {
			t.Run(firstName+" then "+secondName, func(t *testing.T) {
				b := New(Text(`{"a":1}`))
				assert.False(t, b.BodyUsed())

				require.NoError(t, first(b))
				assert.True(t, b.BodyUsed())

				assert.ErrorIs(t, second(b), ErrAlreadyConsumed)
			})
		}
	}
}

func TestBodyConcurrentConsumption(t *testing.T) {
	b := New(Text("race"))

	const n = 16
	var (
		wg        sync.WaitGroup
		winners   atomic.Int32
		consumed  atomic.Int32
		winnerFut atomic.Pointer[future.Future[string]]
	)
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			f, err := b.Text()
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadyConsumed)
				consumed.Add(1)
				return
			}
			winners.Add(1)
			winnerFut.Store(f)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(n-1), consumed.Load())

	v, err := winnerFut.Load().Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "race", v)
}

func TestBodyClone(t *testing.T) {
	t.Run("before consumption", func(t *testing.T) {
		b := New(Text("I work out"))

		clone, err := b.Clone()
		require.NoError(t, err)
		assert.False(t, b.BodyUsed())
		assert.False(t, clone.BodyUsed())

		fc, err := clone.Text()
		require.NoError(t, err)
		fo, err := b.Text()
		require.NoError(t, err)

		bodies, err := future.All(context.Background(), fc, fo)
		require.NoError(t, err)
		assert.Equal(t, []string{"I work out", "I work out"}, bodies)
	})

	t.Run("after consumption", func(t *testing.T) {
		b := New(Text("I work out"))
		await(t, b.Text())

		clone, err := b.Clone()
		assert.ErrorIs(t, err, ErrAlreadyConsumed)
		assert.Nil(t, clone)
	})

	t.Run("consuming the clone leaves the original unused", func(t *testing.T) {
		b := New(Text("x"))
		clone, err := b.Clone()
		require.NoError(t, err)

		await(t, clone.Text())
		assert.True(t, clone.BodyUsed())
		assert.False(t, b.BodyUsed())
	})

	t.Run("stream", func(t *testing.T) {
		r := &closeRecorder{Reader: strings.NewReader("streamed")}
		b := New(Stream(r))

		clone, err := b.Clone()
		require.NoError(t, err)
		assert.True(t, r.closed.Load())

		assert.Equal(t, "streamed", await(t, clone.Text()))
		assert.Equal(t, "streamed", await(t, b.Text()))
	})

	t.Run("null body", func(t *testing.T) {
		b := New(Init{})
		clone, err := b.Clone()
		require.NoError(t, err)
		assert.False(t, clone.HasBody())
	})

	t.Run("stream read error", func(t *testing.T) {
		b := New(Stream(failingReader{}))
		_, err := b.Clone()
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestBodyClose(t *testing.T) {
	r := &closeRecorder{Reader: strings.NewReader("never read")}
	b := New(Stream(r))

	require.NoError(t, b.Close())
	assert.True(t, r.closed.Load())
	assert.False(t, b.BodyUsed())

	f, err := b.Text()
	require.NoError(t, err)
	_, err = f.Await(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	assert.NoError(t, New(Text("x")).Close())
	assert.NoError(t, New(Init{}).Close())
}
