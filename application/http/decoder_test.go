package http

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"network-fetch/application/util/rule"
	bytesutil "network-fetch/util/bytes"

	"github.com/stretchr/testify/suite"
)

type ResponseDecoderTestSuite struct {
	suite.Suite
}

func TestResponseDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseDecoderTestSuite))
}

func (s *ResponseDecoderTestSuite) TestReadLine() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		limit    uint
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "simple line with CRLF",
			input:    "Hello\r\n",
			expected: "Hello",
		},
		{
			desc:    "line exceeding limit",
			input:   "Hey\r\n",
			limit:   1,
			wantErr: bytesutil.ErrTooLong,
		},
		{
			desc:    "Sole LF (fail)",
			input:   "Hello\n",
			wantErr: ErrMissingCRBeforeLF,
		},
		{
			desc:     "Sole LF (success)",
			opts:     DecodeOptions{AllowSoleLF: true},
			input:    "Hello\n",
			expected: "Hello",
		},
		{
			desc:     "CRLF with sole LF allowed",
			opts:     DecodeOptions{AllowSoleLF: true},
			input:    "Hello\r\n",
			expected: "Hello",
		},
		{
			desc:     "bare CR inside line",
			input:    "Hello \r World!\r\n",
			expected: "Hello   World!",
		},
		{
			desc:     "line with lenient whitespace",
			opts:     DecodeOptions{LenientWhitespace: true},
			input:    "Hello" + string(rule.Whitespaces) + "World!" + "\r\n",
			expected: "Hello" + strings.Repeat(" ", len(rule.Whitespaces)) + "World!",
		},
		{
			desc:     "lenient whitespace trimmed",
			opts:     DecodeOptions{LenientWhitespace: true},
			input:    string(rule.Whitespaces) + "Hey" + string(rule.Whitespaces) + "\r\n",
			expected: "Hey",
		},
		{
			desc:    "unterminated",
			input:   "Hello",
			wantErr: io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			rd := NewResponseDecoder(strings.NewReader(tc.input), tc.opts)

			b, err := rd.readLine(tc.limit)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.NoError(err)
			s.Equal(tc.expected, string(b))
		})
	}
}

func (s *ResponseDecoderTestSuite) TestDecode() {
	raw := "" +
		"HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello"

	rd := NewResponseDecoder(strings.NewReader(raw), DefaultDecodeOptions)

	var head ResponseHead
	s.Require().NoError(rd.Decode(&head))

	s.Equal(ResponseHead{
		Version:      Version11,
		StatusCode:   200,
		ReasonPhrase: "OK",
		Fields: Fields{
			{"Content-Type", "text/plain"},
			{"Content-Length", "5"},
		},
	}, head)

	b, err := io.ReadAll(rd.Reader())
	s.NoError(err)
	s.Equal("hello", string(b))
}

func (s *ResponseDecoderTestSuite) TestDecodeSequence() {
	raw := "" +
		"HTTP/1.1 100 Continue\r\n" +
		"\r\n" +
		"HTTP/1.1 204 No Content\r\n" +
		"\r\n"

	rd := NewResponseDecoder(strings.NewReader(raw), DefaultDecodeOptions)

	var head ResponseHead
	s.Require().NoError(rd.Decode(&head))
	s.Equal(100, head.StatusCode)
	s.True(head.IsInterim())

	s.Require().NoError(rd.Decode(&head))
	s.Equal(204, head.StatusCode)
	s.Empty(head.Fields)

	s.ErrorIs(rd.Decode(&head), io.EOF)
}

func (s *ResponseDecoderTestSuite) TestDecodeStatusLine() {
	testcases := []struct {
		desc     string
		input    string
		opts     DecodeOptions
		expected ResponseHead
		wantErr  error
	}{
		{
			desc:     "example",
			input:    "\r\n\r\nHTTP/1.1 404 Not Found\r\n",
			expected: ResponseHead{Version: Version11, StatusCode: 404, ReasonPhrase: "Not Found"},
		},
		{
			desc:     "without reason phrase",
			input:    "HTTP/1.1 204\r\n",
			expected: ResponseHead{Version: Version11, StatusCode: 204},
		},
		{
			desc:     "empty reason phrase",
			input:    "HTTP/1.0 500 \r\n",
			expected: ResponseHead{Version: Version{1, 0}, StatusCode: 500},
		},
		{
			desc:    "two digit status",
			input:   "HTTP/1.1 20 OK\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "status below 100",
			input:   "HTTP/1.1 099 Odd\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "not http",
			input:   "SSH-2.0-OpenSSH\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "length limit exceeded",
			input:   "HTTP/1.1 200 " + strings.Repeat("O", 100) + "K\r\n",
			opts:    DecodeOptions{MaxStatusLineLength: 20},
			wantErr: ErrStatusLineTooLong,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			rd := NewResponseDecoder(strings.NewReader(tc.input), tc.opts)

			var head ResponseHead
			err := rd.decodeStatusLine(&head)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.NoError(err)
			s.Equal(tc.expected, head)
		})
	}
}

func (s *ResponseDecoderTestSuite) TestDecodeFields() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		input    string
		expected Fields
		wantErr  error
	}{
		{
			desc: "simple fields",
			input: "" +
				"Content-Type: text/html\r\n" +
				"Content-Length: 123\r\n" +
				"\r\n",
			expected: Fields{
				{"Content-Type", "text/html"},
				{"Content-Length", "123"},
			},
		},
		{
			desc:     "no fields",
			input:    "\r\n",
			expected: Fields{},
		},
		{
			desc: "field line exceeding limit",
			opts: DecodeOptions{MaxFieldLineLength: 5},
			input: "" +
				"Content-Type: text/html\r\n" +
				"\r\n",
			wantErr: ErrFieldLineTooLong,
		},
		{
			desc: "too many fields",
			opts: DecodeOptions{MaxFieldCount: 1},
			input: "" +
				"A: 1\r\n" +
				"B: 2\r\n" +
				"\r\n",
			wantErr: ErrTooManyFields,
		},
		{
			desc:    "malformed field",
			input:   "Content-Type text/html\r\n",
			wantErr: ErrMalformedFieldLine,
		},
		{
			desc:    "truncated",
			input:   "Content-Type: text/html\r\n",
			wantErr: io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			rd := &ResponseDecoder{
				br:   bufio.NewReader(strings.NewReader(tc.input)),
				opts: tc.opts,
			}

			fields, err := rd.decodeFields()
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.NoError(err)
			s.Equal(tc.expected, fields)
		})
	}
}
