package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
)

func init() {
	Register(KindHTTP, OpenHTTP)
}

// ErrCorrupted is surfaced when the HTTP body ends before the
// transport's caller expected it to (spec.md §4.3: "detects early EOF
// via EIO from the I/O layer and reports it as CORRUPTED").
var ErrCorrupted = errors.New("transport/http: connection closed early")

// httpTransport issues one GET and streams the response body,
// following stages/ris-live.go's client construction (User-Agent
// header, no line-buffering invariants beyond bufio).
type httpTransport struct {
	resp   *http.Response
	reader *bufio.Reader
}

// OpenHTTP implements Opener for KindHTTP: one-shot GET, streamed body.
func OpenHTTP(uri string, attrs Attrs) (Transport, error) {
	req, err := http.NewRequest("GET", uri, nil)
	if err != nil {
		return nil, fmt.Errorf("transport/http: %w", err)
	}
	ua := attrs["USER_AGENT"]
	if ua == "" {
		ua = "bgpstream/1.0"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport/http: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("transport/http: HTTP %s", resp.Status)
	}
	return &httpTransport{resp: resp, reader: bufio.NewReaderSize(resp.Body, 64*1024)}, nil
}

func (t *httpTransport) Read(buf []byte) (int, error) {
	n, err := t.reader.Read(buf)
	if err != nil && errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return n, err
}

func (t *httpTransport) ReadLine() ([]byte, error) {
	line, err := t.reader.ReadSlice('\n')
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if err != nil && errors.Is(err, io.ErrUnexpectedEOF) {
		return line, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return line, err
}

func (t *httpTransport) Close() error {
	return t.resp.Body.Close()
}
