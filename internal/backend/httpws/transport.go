// Package httpws provides the network transport backend: JSON and JSONP
// requests over net/http and duplex channels over websockets.
package httpws

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gorilla/websocket"
	"golang.org/x/net/publicsuffix"

	"github.com/leapstack-labs/leapbind/pkg/bind"
	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Name is the registry name of the backend.
const Name = "http"

const (
	defaultTimeout          = 30 * time.Second
	defaultConnectTimeout   = 10 * time.Second
	defaultTLSTimeout       = 10 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultReadLimit        = 1 << 20
	userAgent               = "leapbind"
)

func init() {
	bind.RegisterTransport(Name, func(settings bind.Settings, logger *slog.Logger) (spi.Transport, error) {
		opts, err := DecodeOptions(settings)
		if err != nil {
			return nil, err
		}
		opts.Logger = logger
		return New(opts)
	})
}

// Options configures the transport. Durations decode from strings such
// as "5s".
type Options struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	TLSTimeout       time.Duration `mapstructure:"tls_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	Header           http.Header   `mapstructure:"-"`
	Logger           *slog.Logger  `mapstructure:"-"`
}

// DecodeOptions reads Options from backend settings.
func DecodeOptions(settings bind.Settings) (Options, error) {
	var opts Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(settings); err != nil {
		return opts, fmt.Errorf("decode %s settings: %w", Name, err)
	}
	return opts, nil
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.TLSTimeout <= 0 {
		o.TLSTimeout = defaultTLSTimeout
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Transport implements spi.Transport. Requests and sockets run on their
// own goroutines and report through the receivers.
type Transport struct {
	opts   Options
	client *http.Client
	dialer *websocket.Dialer
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	sockets map[*socket]struct{}
	wg      sync.WaitGroup
}

// New creates the transport.
func New(opts Options) (*Transport, error) {
	opts.applyDefaults()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	dialer := &net.Dialer{
		Timeout: opts.ConnectTimeout,
	}
	client := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: opts.TLSTimeout,
		},
		Timeout: opts.Timeout,
		Jar:     jar,
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		opts:   opts,
		client: client,
		dialer: &websocket.Dialer{
			NetDialContext:   dialer.DialContext,
			HandshakeTimeout: opts.HandshakeTimeout,
			Jar:              jar,
		},
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
		sockets: make(map[*socket]struct{}),
	}, nil
}

// Close aborts pending requests and closes every open socket, then waits
// for their goroutines to finish.
func (t *Transport) Close() error {
	t.cancel()

	t.mu.Lock()
	for s := range t.sockets {
		s.abort()
	}
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}

func (t *Transport) header() http.Header {
	h := t.opts.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	if h.Get("User-Agent") == "" {
		h.Set("User-Agent", userAgent)
	}
	return h
}

func (t *Transport) track(s *socket) {
	t.mu.Lock()
	t.sockets[s] = struct{}{}
	t.mu.Unlock()
}

func (t *Transport) untrack(s *socket) {
	t.mu.Lock()
	delete(t.sockets, s)
	t.mu.Unlock()
}
