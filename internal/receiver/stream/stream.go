// Package stream implements the TLS-wrapped, octet-count-framed syslog
// receiver. Each accepted connection is one session: a single in-order
// byte stream decoded with internal/framing and delivered to a Processor
// message by message. A session ending does not affect the listener or
// any other session.
package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"syslogcollector/internal/framing"
	"syslogcollector/internal/logging"
)

const sessionReadTimeout = 30 * time.Second

// Processor is the capability this receiver needs from the pipeline.
type Processor interface {
	Process(sourceIP, raw string)
}

// Config configures a Receiver.
type Config struct {
	// Addr is the TCP address to listen on, e.g. "0.0.0.0:6514".
	Addr string

	// TLSConfig supplies the server certificate. Required.
	TLSConfig *tls.Config

	// MaxMsgLen and MaxBufferSize bound the per-session framing decoder.
	MaxMsgLen     int
	MaxBufferSize int

	Processor Processor
	Logger    *slog.Logger
}

// Receiver accepts TLS connections and decodes octet-counted syslog
// frames from each one.
type Receiver struct {
	addr          string
	tlsConfig     *tls.Config
	maxMsgLen     int
	maxBufferSize int
	processor     Processor
	logger        *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// New creates a Receiver. Call Run to start listening.
func New(cfg Config) *Receiver {
	return &Receiver{
		addr:          cfg.Addr,
		tlsConfig:     cfg.TLSConfig,
		maxMsgLen:     cfg.MaxMsgLen,
		maxBufferSize: cfg.MaxBufferSize,
		processor:     cfg.Processor,
		logger:        logging.Default(cfg.Logger).With("component", "receiver", "transport", "tls"),
		conns:         make(map[net.Conn]struct{}),
	}
}

// Run binds the TLS listener and accepts connections until ctx is
// cancelled or the listener is closed. Other accept errors are logged
// and the loop continues.
func (r *Receiver) Run(ctx context.Context) error {
	tcpListener, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("listen tcp: %w", err)
	}
	listener := tls.NewListener(tcpListener, r.tlsConfig)

	r.mu.Lock()
	r.listener = listener
	r.mu.Unlock()

	r.logger.Info("tls receiver listening", "addr", tcpListener.Addr().String())

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.listener != nil {
			r.listener.Close()
		}
		// Idle sessions are otherwise blocked in conn.Read under their own
		// read deadline; close every tracked connection so shutdown doesn't
		// wait on that deadline to expire.
		for conn := range r.conns {
			conn.Close()
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			r.logger.Warn("tls accept error", "error", err)
			continue
		}

		r.mu.Lock()
		r.conns[conn] = struct{}{}
		r.mu.Unlock()

		r.wg.Add(1)
		go func(conn net.Conn) {
			defer r.wg.Done()
			defer func() {
				r.mu.Lock()
				delete(r.conns, conn)
				r.mu.Unlock()
				conn.Close()
			}()
			r.handleSession(ctx, conn)
		}(conn)
	}

	r.wg.Wait()
	return nil
}

// handleSession owns one connection end to end: read, decode frames,
// hand each one to the processor, until EOF, a read error, or ctx is
// cancelled. A read timeout only re-checks ctx and keeps reading; a read
// error ends only this session.
func (r *Receiver) handleSession(ctx context.Context, conn net.Conn) {
	sourceIP := ""
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		sourceIP = tcpAddr.IP.String()
	}

	sessionID := uuid.NewString()
	logger := r.logger.With("session_id", sessionID, "source", sourceIP)
	logger.Debug("session started")
	defer logger.Debug("session ended")

	decoder := framing.New(framing.Config{
		MaxMsgLen:     r.maxMsgLen,
		MaxBufferSize: r.maxBufferSize,
		Logger:        logger,
	})

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(sessionReadTimeout))

		n, err := conn.Read(buf)
		if n > 0 {
			for _, msg := range decoder.Feed(buf[:n]) {
				r.processor.Process(sourceIP, msg)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if !errors.Is(err, net.ErrClosed) {
				logger.Debug("session read ended", "error", err)
			}
			return
		}
	}
}
