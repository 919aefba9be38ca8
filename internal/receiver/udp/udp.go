// Package udp implements the UDP syslog receiver: one datagram is one
// record, received on a best-effort basis with no framing or
// reassembly.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"syslogcollector/internal/logging"
)

const maxDatagramSize = 65536

// Processor is the capability this receiver needs from the pipeline:
// handle one decoded message from one source.
type Processor interface {
	Process(sourceIP, raw string)
}

// Config configures a Receiver.
type Config struct {
	// Addr is the UDP address to listen on, e.g. "0.0.0.0:514".
	Addr string

	Processor Processor
	Logger    *slog.Logger
}

// Receiver listens for UDP syslog datagrams and hands each one to a
// Processor.
type Receiver struct {
	addr      string
	processor Processor
	logger    *slog.Logger

	mu   sync.Mutex
	conn *net.UDPConn
}

// New creates a Receiver. Call Run to start listening.
func New(cfg Config) *Receiver {
	return &Receiver{
		addr:      cfg.Addr,
		processor: cfg.Processor,
		logger:    logging.Default(cfg.Logger).With("component", "receiver", "transport", "udp"),
	}
}

// Run binds the UDP socket and reads datagrams until ctx is cancelled or
// the socket is closed. Other read errors are logged and the loop
// continues. It returns nil on clean shutdown.
func (r *Receiver) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", r.addr)
	if err != nil {
		return fmt.Errorf("resolve udp addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	r.logger.Info("udp receiver listening", "addr", conn.LocalAddr().String())

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.conn != nil {
			r.conn.Close()
		}
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		conn.SetReadDeadline(time.Now().Add(time.Second))

		n, remoteAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.logger.Warn("udp read error", "error", err)
			continue
		}
		if n == 0 {
			continue
		}

		text := decode(buf[:n])
		sourceIP := remoteAddr.IP.String()
		r.processor.Process(sourceIP, text)
	}
}

// decode replaces invalid UTF-8 sequences rather than dropping the
// datagram, matching the framing decoder's leniency for the stream
// transport.
func decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
