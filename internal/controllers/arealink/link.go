// Package arealink speaks the binary UDP/TCP protocol of the Area Controller:
// data packets out, control packets and start/stop signals in.
package arealink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/packet"
	"github.com/Agrid-Dev/housemocktat/internal/ports"
	"github.com/Agrid-Dev/housemocktat/internal/simulation"
)

const (
	maxControlPacket   = 2048
	maxStartStopPacket = 128
	controlReadTimeout = 5 * time.Second
)

type Config struct {
	// AreaController receives data packets over UDP.
	AreaController string
	// ControlAddr is the TCP listen address for control packets. Empty disables it.
	ControlAddr string
	// StartStopAddr is the UDP listen address for start/stop signals. Empty disables it.
	StartStopAddr string
	Oracle        packet.Oracle
}

type Link struct {
	svc ports.HouseService
	cfg Config
	log *logrus.Logger

	mu   sync.Mutex
	data net.Conn

	// bound listener addresses, set once Run is listening
	ready       chan struct{}
	controlAddr net.Addr
	startAddr   net.Addr
}

func New(svc ports.HouseService, cfg Config, log *logrus.Logger) (*Link, error) {
	if cfg.AreaController == "" {
		cfg.AreaController = "10.10.0.1:42070"
	}
	if cfg.Oracle == nil {
		cfg.Oracle = packet.DefaultOracle()
	}
	conn, err := net.Dial("udp", cfg.AreaController)
	if err != nil {
		return nil, fmt.Errorf("arealink: dial %s: %w", cfg.AreaController, err)
	}
	return &Link{svc: svc, cfg: cfg, log: log, data: conn, ready: make(chan struct{})}, nil
}

// Publish implements simulation.Sink by sending one 13-byte data packet.
func (l *Link) Publish(_ context.Context, r household.Reading) error {
	b := packet.EncodeData(packet.Data{
		Devices:     r.Bitmask(),
		PowerUsage:  float32(r.TotalDraw),
		Temperature: float32(r.Temperature),
		Time:        uint32(max(0, min(r.Time, math.MaxUint32))),
	})
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.data.Write(b); err != nil {
		return fmt.Errorf("arealink: send data: %w", err)
	}
	return nil
}

// Run serves the control and start/stop listeners until ctx is canceled.
func (l *Link) Run(ctx context.Context) error {
	entry := l.log.WithField("component", "arealink")
	g, ctx := errgroup.WithContext(ctx)

	var ctl net.Listener
	if l.cfg.ControlAddr != "" {
		var err error
		if ctl, err = net.Listen("tcp", l.cfg.ControlAddr); err != nil {
			return fmt.Errorf("arealink: listen control %s: %w", l.cfg.ControlAddr, err)
		}
		l.controlAddr = ctl.Addr()
		entry.WithField("addr", ctl.Addr()).Info("control listener up")
	}

	var ss net.PacketConn
	if l.cfg.StartStopAddr != "" {
		var err error
		if ss, err = net.ListenPacket("udp", l.cfg.StartStopAddr); err != nil {
			if ctl != nil {
				_ = ctl.Close()
			}
			return fmt.Errorf("arealink: listen start/stop %s: %w", l.cfg.StartStopAddr, err)
		}
		l.startAddr = ss.LocalAddr()
		entry.WithField("addr", ss.LocalAddr()).Info("start/stop listener up")
	}
	close(l.ready)

	if ctl != nil {
		g.Go(func() error { return l.serveControl(ctx, ctl) })
	}
	if ss != nil {
		g.Go(func() error { return l.serveStartStop(ctx, ss) })
	}
	g.Go(func() error {
		<-ctx.Done()
		if ctl != nil {
			_ = ctl.Close()
		}
		if ss != nil {
			_ = ss.Close()
		}
		l.mu.Lock()
		_ = l.data.Close()
		l.mu.Unlock()
		return ctx.Err()
	})
	return g.Wait()
}

// One control packet per TCP connection.
func (l *Link) serveControl(ctx context.Context, ln net.Listener) error {
	entry := l.log.WithField("component", "arealink")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("arealink: accept: %w", err)
		}
		b, err := readPacket(conn)
		_ = conn.Close()
		if err != nil {
			entry.WithError(err).Warn("read control packet")
			continue
		}
		if err := l.handleControl(b); err != nil {
			entry.WithError(err).Warn("control packet")
		}
	}
}

func (l *Link) handleControl(b []byte) error {
	c, err := packet.DecodeControl(b, l.cfg.Oracle)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return simulation.ApplyControl(l.svc, c, l.log)
}

func (l *Link) serveStartStop(ctx context.Context, pc net.PacketConn) error {
	entry := l.log.WithField("component", "arealink")
	buf := make([]byte, maxStartStopPacket)
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("arealink: read start/stop: %w", err)
		}
		if n == 0 {
			continue
		}
		running := buf[0] > 0
		l.svc.SetRunning(running)
		entry.WithFields(logrus.Fields{"from": from, "running": running}).Info("start/stop")
	}
}

func readPacket(conn net.Conn) ([]byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(controlReadTimeout))
	buf := make([]byte, maxControlPacket)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n == 0 {
		return nil, packet.ErrShortPacket
	}
	return buf[:n], nil
}
