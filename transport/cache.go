package transport

import (
	"fmt"
	"io"
	"os"

	"github.com/routeviews/bgpstream/internal/cachefile"

	"github.com/klauspost/compress/gzip"
)

func init() {
	Register(KindCache, OpenCache)
}

// cacheAttrs read from Attrs: CACHE_DIR (required), CACHE_UPSTREAM_KIND
// (the transport.Kind this cache wraps, e.g. "file").
const (
	attrCacheDir      = "CACHE_DIR"
	attrUpstreamKind  = "CACHE_UPSTREAM_KIND"
)

// OpenCache implements Opener for KindCache: wraps another transport
// and, on first open for a resource, writes-through to a gzip-compressed
// cache file named by a deterministic hash of the resource (spec.md §4.3,
// §6, scenario S6). Grounded on the original
// lib/transports/bs_transport_cache.c temp-file + lockfile + rename
// sequencing.
func OpenCache(uri string, attrs Attrs) (Transport, error) {
	dir := attrs[attrCacheDir]
	if dir == "" {
		return nil, fmt.Errorf("transport/cache: missing %s attribute", attrCacheDir)
	}
	upstreamKind := Kind(attrs[attrUpstreamKind])
	if upstreamKind == "" {
		upstreamKind = KindFile
	}

	hash := cachefile.Hash(uri)
	cachePath, tempPath, lockPath := cachefile.Paths(dir, hash)

	if cachefile.Exists(cachePath) {
		f, err := os.Open(cachePath)
		if err != nil {
			return nil, fmt.Errorf("transport/cache: %w", err)
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("transport/cache: %w", err)
		}
		return &cacheReadTransport{file: f, gz: gz}, nil
	}

	upstream, err := Open(upstreamKind, uri, attrs)
	if err != nil {
		return nil, err
	}

	ok, err := cachefile.AcquireLock(lockPath)
	if err != nil {
		upstream.Close()
		return nil, err
	}
	if !ok {
		// another writer is active: read through without caching
		return &passthroughTransport{upstream: upstream}, nil
	}

	tf, err := os.Create(tempPath)
	if err != nil {
		cachefile.ReleaseLock(lockPath)
		upstream.Close()
		return nil, fmt.Errorf("transport/cache: %w", err)
	}
	gw, _ := gzip.NewWriterLevel(tf, gzip.BestSpeed)

	return &cacheWriteTransport{
		upstream:  upstream,
		tempFile:  tf,
		gzWriter:  gw,
		tempPath:  tempPath,
		cachePath: cachePath,
		lockPath:  lockPath,
	}, nil
}

// passthroughTransport serves bytes straight from upstream, used when
// another process already holds the write lock.
type passthroughTransport struct {
	upstream Transport
}

func (t *passthroughTransport) Read(buf []byte) (int, error)     { return t.upstream.Read(buf) }
func (t *passthroughTransport) ReadLine() ([]byte, error)        { return t.upstream.ReadLine() }
func (t *passthroughTransport) Close() error                     { return t.upstream.Close() }

// cacheReadTransport serves bytes from a finished, gzip-compressed
// cache file.
type cacheReadTransport struct {
	file *os.File
	gz   *gzip.Reader
	buf  []byte // leftover bytes for ReadLine
}

func (t *cacheReadTransport) Read(buf []byte) (int, error) {
	return t.gz.Read(buf)
}

func (t *cacheReadTransport) ReadLine() ([]byte, error) {
	return readLineFrom(t.gz, &t.buf)
}

func (t *cacheReadTransport) Close() error {
	t.gz.Close()
	return t.file.Close()
}

// cacheWriteTransport reads from upstream, mirrors every byte into the
// gzip-compressed temp file, and on EOS atomically commits the cache.
type cacheWriteTransport struct {
	upstream  Transport
	tempFile  *os.File
	gzWriter  *gzip.Writer
	tempPath  string
	cachePath string
	lockPath  string
	buf       []byte // leftover bytes for ReadLine
	closed    bool
}

func (t *cacheWriteTransport) Read(buf []byte) (int, error) {
	n, err := t.upstream.Read(buf)
	if n > 0 {
		t.gzWriter.Write(buf[:n])
	}
	if err == io.EOF {
		t.finish()
	}
	return n, err
}

func (t *cacheWriteTransport) ReadLine() ([]byte, error) {
	line, err := t.upstream.ReadLine()
	if len(line) > 0 {
		t.gzWriter.Write(line)
		t.gzWriter.Write([]byte{'\n'})
	}
	if err == io.EOF {
		t.finish()
	}
	return line, err
}

// finish flushes and commits the cache file once EOS has been observed
// on the upstream transport.
func (t *cacheWriteTransport) finish() {
	if t.closed {
		return
	}
	t.closed = true
	t.gzWriter.Close()
	t.tempFile.Close()
	if err := cachefile.Commit(t.tempPath, t.cachePath); err == nil {
		cachefile.ReleaseLock(t.lockPath)
	}
}

func (t *cacheWriteTransport) Close() error {
	t.finish()
	return t.upstream.Close()
}

// readLineFrom is a tiny ReadLine shim for transports whose underlying
// reader exposes only Read (gzip.Reader has no ReadSlice).
func readLineFrom(r io.Reader, leftover *[]byte) ([]byte, error) {
	buf := *leftover
	for {
		for i, b := range buf {
			if b == '\n' {
				line := append([]byte(nil), buf[:i]...)
				*leftover = append([]byte(nil), buf[i+1:]...)
				return line, nil
			}
		}
		chunk := make([]byte, 4096)
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			*leftover = nil
			return buf, err
		}
	}
}
