package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/searchsvc/gateway/internal/observability"
)

// ErrNoCertificate is returned from a handshake before any pair loads.
var ErrNoCertificate = errors.New("no certificate loaded")

const defaultDebounce = 100 * time.Millisecond

// FileProvider loads a certificate pair from disk and optionally
// watches the files for changes. Reload failures keep the previous
// pair in service.
type FileProvider struct {
	certFile string
	keyFile  string
	logger   observability.Logger
	debounce time.Duration

	certificate atomic.Pointer[tls.Certificate]

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// ProviderOption is a functional option for the provider.
type ProviderOption func(*FileProvider)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) ProviderOption {
	return func(p *FileProvider) {
		p.logger = logger
	}
}

// WithDebounce sets the delay between a file event and the reload, so
// a cert/key pair written in two operations is picked up as one.
func WithDebounce(d time.Duration) ProviderOption {
	return func(p *FileProvider) {
		p.debounce = d
	}
}

// NewFileProvider loads the initial certificate pair from disk.
func NewFileProvider(certFile, keyFile string, opts ...ProviderOption) (*FileProvider, error) {
	p := &FileProvider{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   observability.NopLogger(),
		debounce: defaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.load(); err != nil {
		return nil, err
	}

	return p, nil
}

// GetCertificate implements tls.Config.GetCertificate. It never blocks.
func (p *FileProvider) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert := p.certificate.Load()
	if cert == nil {
		return nil, ErrNoCertificate
	}
	return cert, nil
}

// Watch starts the fsnotify loop. Directories are watched rather than
// the files themselves because kubernetes-style symlink swaps replace
// the file inode.
func (p *FileProvider) Watch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	certDir := filepath.Dir(p.certFile)
	if err := watcher.Add(certDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", certDir, err)
	}
	if keyDir := filepath.Dir(p.keyFile); keyDir != certDir {
		if err := watcher.Add(keyDir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", keyDir, err)
		}
	}

	p.watcher = watcher
	p.started = true

	go p.watchLoop()

	p.logger.Info("watching certificate files",
		observability.String("cert", p.certFile),
		observability.String("key", p.keyFile),
	)

	return nil
}

// Close stops the watcher.
func (p *FileProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	p.started = false

	close(p.stopCh)
	<-p.doneCh

	return p.watcher.Close()
}

func (p *FileProvider) load() error {
	cert, err := tls.LoadX509KeyPair(p.certFile, p.keyFile)
	if err != nil {
		return fmt.Errorf("load certificate pair: %w", err)
	}

	if len(cert.Certificate) > 0 {
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			cert.Leaf = leaf
			p.logger.Info("certificate loaded",
				observability.String("subject", leaf.Subject.CommonName),
				observability.Time("notAfter", leaf.NotAfter),
			)
		}
	}

	p.certificate.Store(&cert)
	return nil
}

func (p *FileProvider) watchLoop() {
	defer close(p.doneCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-p.stopCh:
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if !p.relevant(event) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(p.debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			if err := p.load(); err != nil {
				// Keep serving the previous pair.
				p.logger.Error("certificate reload failed",
					observability.Error(err),
				)
				continue
			}
			p.logger.Info("certificate reloaded")

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("certificate watcher error",
				observability.Error(err),
			)
		}
	}
}

func (p *FileProvider) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	clean := filepath.Clean(event.Name)
	return clean == filepath.Clean(p.certFile) || clean == filepath.Clean(p.keyFile)
}
