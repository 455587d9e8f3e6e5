package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	pkgjsonschema "github.com/goliatone/go-jsonform/pkg/jsonschema"
)

// DefaultMaxBytes caps any single document read by the loader.
const DefaultMaxBytes = int64(5 << 20)

// Loader implements pkgjsonschema.Loader for schema, layout and data
// documents. It reads files, fs.FS entries, HTTP URLs and payloads registered
// in memory under an inline name.
type Loader struct {
	fs        fs.FS
	http      *http.Client
	allowHTTP bool
	timeout   time.Duration
	maxBytes  int64

	mu     sync.RWMutex
	inline map[string][]byte
}

var _ pkgjsonschema.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options pkgjsonschema.LoaderOptions) *Loader {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTPFallback:
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Loader{
		fs:        options.FileSystem,
		http:      httpClient,
		allowHTTP: httpClient != nil,
		timeout:   timeout,
		maxBytes:  DefaultMaxBytes,
		inline:    map[string][]byte{},
	}
}

// Register stores raw under name so SourceInline(name) can be loaded.
func (l *Loader) Register(name string, raw []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inline[name] = append([]byte(nil), raw...)
}

// Load fetches a document from the provided source and wraps it in a Document.
func (l *Loader) Load(ctx context.Context, src pkgjsonschema.Source) (pkgjsonschema.Document, error) {
	if src == nil {
		return pkgjsonschema.Document{}, errors.New("jsonform loader: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return pkgjsonschema.Document{}, err
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case pkgjsonschema.SourceKindFile:
		data, err = l.loadFile(src.Location())
	case pkgjsonschema.SourceKindFS:
		data, err = l.loadFS(src.Location())
	case pkgjsonschema.SourceKindURL:
		if !l.allowHTTP {
			return pkgjsonschema.Document{}, errors.New("jsonform loader: http support disabled")
		}
		data, err = l.loadHTTP(ctx, src.Location())
	case pkgjsonschema.SourceKindInline:
		data, err = l.loadInline(src.Location())
	default:
		err = fmt.Errorf("unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return pkgjsonschema.Document{}, fmt.Errorf("jsonform loader: %s: %w", src.Location(), err)
	}
	return pkgjsonschema.NewDocument(src, data)
}

func (l *Loader) loadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return l.readLimited(f)
}

func (l *Loader) loadFS(name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("fs path is required")
	}
	if l.fs == nil {
		return nil, errors.New("fs is nil")
	}
	f, err := l.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return l.readLimited(f)
}

func (l *Loader) loadHTTP(ctx context.Context, url string) ([]byte, error) {
	if l.http == nil {
		return nil, errors.New("http client is not configured")
	}
	reqCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/schema+json, application/json, application/yaml;q=0.9")
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("unexpected status " + resp.Status)
	}
	return l.readLimited(resp.Body)
}

func (l *Loader) loadInline(name string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	raw, ok := l.inline[name]
	if !ok {
		return nil, errors.New("inline document not registered")
	}
	return append([]byte(nil), raw...), nil
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", l.maxBytes)
	}
	return data, nil
}
