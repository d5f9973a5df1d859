// Package engine is the UDP front-end of the fleet. It binds every assigned
// port, and on each inbound packet asks the pool for the port's device,
// materializing it lazily on first query.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/awksedgreep/snmp-sim-go/internal/device"
	"github.com/awksedgreep/snmp-sim-go/internal/pool"
)

const (
	// maxDatagram bounds a single SNMP request; anything larger is not a
	// PDU this fleet answers.
	maxDatagram = 4096

	// pollInterval is the read-deadline granularity; it bounds how long
	// Stop waits for a serve goroutine to notice shutdown.
	pollInterval = time.Second

	// socketBufferBytes sizes SO_RCVBUF/SO_SNDBUF so poller bursts against
	// thousands of ports do not shed datagrams.
	socketBufferBytes = 256 << 10
)

// Listener owns the UDP sockets for a configured port range and forwards
// traffic to lazily-created device actors.
type Listener struct {
	listenAddr  string
	assignments *device.PortAssignments
	pool        *pool.Pool

	mu      sync.Mutex
	sockets map[int]*net.UDPConn
	serving bool

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewListener creates the front-end for the given assignments and pool.
func NewListener(listenAddr string, pa *device.PortAssignments, p *pool.Pool) (*Listener, error) {
	if pa == nil || pa.TotalDevices() == 0 {
		return nil, fmt.Errorf("no ports assigned")
	}
	return &Listener{
		listenAddr:  listenAddr,
		assignments: pa,
		pool:        p,
		sockets:     make(map[int]*net.UDPConn),
		logger:      log.With().Str("component", "listener").Logger(),
	}, nil
}

// Start binds every assigned port and begins serving. Sockets are bound
// eagerly; device actors are not created until the first packet arrives.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.serving {
		return fmt.Errorf("listener already running")
	}

	ip := net.ParseIP(l.listenAddr)
	for _, port := range l.assignments.AllPorts() {
		sock, err := bindPort(ip, port)
		if err != nil {
			l.closeSockets()
			return err
		}
		l.sockets[port] = sock
	}

	l.serving = true
	for port, sock := range l.sockets {
		l.wg.Add(1)
		go l.servePort(ctx, sock, port)
	}

	l.logger.Info().Int("ports", len(l.sockets)).Msg("UDP listeners started")
	return nil
}

// bindPort opens and tunes one UDP socket.
func bindPort(ip net.IP, port int) (*net.UDPConn, error) {
	sock, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	if err := tuneSocket(sock); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to tune socket on port %d: %w", port, err)
	}
	return sock, nil
}

// servePort reads datagrams on one port until shutdown. Each goroutine owns
// its buffer; requests for one port are naturally serialized here before
// they ever reach the actor.
func (l *Listener) servePort(ctx context.Context, sock *net.UDPConn, port int) {
	defer l.wg.Done()

	buf := make([]byte, maxDatagram)
	for ctx.Err() == nil {
		sock.SetReadDeadline(time.Now().Add(pollInterval))

		n, client, err := sock.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if l.isServing() {
				l.logger.Error().Err(err).Int("port", port).Msg("read error")
			}
			continue
		}

		metricReceived.Inc()
		l.dispatch(ctx, sock, port, buf[:n], client)
	}
}

// dispatch resolves the port's device through the pool and relays one
// request. Failures never produce a response: per policy the fleet is silent
// toward unknown or over-budget ports, and the drop reason goes to metrics
// instead.
func (l *Listener) dispatch(ctx context.Context, sock *net.UDPConn, port int, payload []byte, client *net.UDPAddr) {
	dev, err := l.pool.GetOrCreate(ctx, port)
	switch {
	case err == nil:
	case errors.Is(err, pool.ErrUnknownPortRange):
		metricDropped.WithLabelValues(dropUnknownPort).Inc()
		return
	case errors.Is(err, pool.ErrPoolExhausted):
		metricDropped.WithLabelValues(dropPoolExhausted).Inc()
		l.logger.Warn().Int("port", port).Msg("pool exhausted, dropping request")
		return
	default:
		metricDropped.WithLabelValues(dropPoolError).Inc()
		l.logger.Debug().Err(err).Int("port", port).Msg("dropping packet")
		return
	}

	reply := dev.HandlePacket(payload)
	if reply == nil {
		metricDropped.WithLabelValues(dropNoResponse).Inc()
		return
	}
	if _, err := sock.WriteToUDP(reply, client); err != nil {
		l.logger.Error().Err(err).Int("port", port).Msg("write error")
		return
	}
	metricResponded.Inc()
}

// Stop closes every socket and waits for the serve goroutines.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.serving {
		l.mu.Unlock()
		return
	}
	l.serving = false
	l.closeSockets()
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Info().Msg("all listeners stopped")
}

func (l *Listener) isServing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.serving
}

// closeSockets tears down every bound socket. Caller holds mu.
func (l *Listener) closeSockets() {
	for port, sock := range l.sockets {
		if err := sock.Close(); err != nil {
			l.logger.Error().Err(err).Int("port", port).Msg("error closing socket")
		}
	}
	l.sockets = make(map[int]*net.UDPConn)
}

// tuneSocket grows the kernel buffers and asks for SO_REUSEPORT. Buffer
// failures are fatal (the fleet depends on absorbing poller bursts);
// SO_REUSEPORT is opportunistic since older kernels lack it.
func tuneSocket(sock *net.UDPConn) error {
	raw, err := sock.SyscallConn()
	if err != nil {
		return err
	}

	var optErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		for _, opt := range []int{unix.SO_RCVBUF, unix.SO_SNDBUF} {
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, opt, socketBufferBytes); err != nil {
				optErr = fmt.Errorf("set socket buffer: %w", err)
				return
			}
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			log.Warn().Err(err).Msg("SO_REUSEPORT not available")
		}
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return optErr
}
