// sink_network.go: line-delimited JSON network sink
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/shirou/gopsutil/v3/host"
)

// wireRecord is the one-line-per-record JSON shape emitted to network
// sinks: @timestamp (ISO-8601 UTC), level (uppercase), message, and the
// optional file/line/function/host fields.
type wireRecord struct {
	Timestamp string `json:"@timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Function  string `json:"function,omitempty"`
	Host      string `json:"host,omitempty"`
}

var networkJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// networkSinkQueueSize bounds the sink's internal pending-write queue;
// once full the oldest queued line is dropped to make room (§4.3).
const networkSinkQueueSize = 2048

// networkSinkReconnectBackoff is the delay between redial attempts while
// the reconnect worker is re-establishing the connection.
const networkSinkReconnectBackoff = 200 * time.Millisecond

// NetworkSink streams one JSON object per record per line to a TCP
// endpoint. Writes land in a bounded internal queue (drop-oldest on
// overflow, with a running drop count) and are delivered by a dedicated
// sender goroutine; a second dedicated goroutine owns reconnecting after
// the peer drops the connection, so neither path blocks the caller.
type NetworkSink struct {
	network string
	addr    string
	timeout time.Duration
	host    string

	connMu sync.Mutex
	conn   net.Conn

	queue *OverflowQueue[[]byte]

	unhealthy int32
	reconnect chan struct{}
	drops     int64

	wg     sync.WaitGroup
	closed int32
	stopCh chan struct{}
}

// NewNetworkSink dials network/addr ("tcp", "host:port") with the given
// I/O timeout applied to both dial and write, then starts its sender and
// reconnect workers.
func NewNetworkSink(network, addr string, timeout time.Duration) (*NetworkSink, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &NetworkSink{
		network:   network,
		addr:      addr,
		timeout:   timeout,
		host:      hostIdentifier(),
		queue:     NewOverflowQueue(OverflowQueueConfig[[]byte]{MaxSize: networkSinkQueueSize, Policy: DropOldest}),
		reconnect: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
	if err := s.dial(); err != nil {
		return nil, err
	}

	s.wg.Add(2)
	go s.senderLoop()
	go s.reconnectLoop()
	return s, nil
}

// hostIdentifier prefers gopsutil's host info (stable across containerized
// environments where os.Hostname reports a pod-local name) and falls back to
// os.Hostname when gopsutil cannot read /proc or the platform equivalent.
func hostIdentifier() string {
	if info, err := host.InfoWithContext(context.Background()); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	name, _ := os.Hostname()
	return name
}

func (s *NetworkSink) dial() error {
	conn, err := net.DialTimeout(s.network, s.addr, s.timeout)
	if err != nil {
		atomic.StoreInt32(&s.unhealthy, 1)
		return errors.Wrap(err, ErrCodeNetworkDial, "failed to dial network sink endpoint")
	}
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	atomic.StoreInt32(&s.unhealthy, 0)
	return nil
}

// requestReconnect signals the reconnect worker without blocking if a
// request is already pending.
func (s *NetworkSink) requestReconnect() {
	atomic.StoreInt32(&s.unhealthy, 1)
	select {
	case s.reconnect <- struct{}{}:
	default:
	}
}

// reconnectLoop owns redialing after a write failure, so the sender never
// blocks the queue waiting on a dial.
func (s *NetworkSink) reconnectLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.reconnect:
		}
		for atomic.LoadInt32(&s.unhealthy) == 1 {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if err := s.dial(); err != nil {
				select {
				case <-time.After(networkSinkReconnectBackoff):
				case <-s.stopCh:
					return
				}
				continue
			}
			break
		}
	}
}

// senderLoop is the dedicated consumer draining the queue to the wire.
func (s *NetworkSink) senderLoop() {
	defer s.wg.Done()
	for {
		line, ok := s.queue.Pop(200 * time.Millisecond)
		if !ok {
			if atomic.LoadInt32(&s.closed) == 1 && s.queue.Len() == 0 {
				return
			}
			continue
		}
		s.deliver(line)
	}
}

// deliver writes one queued line to the current connection, tearing it
// down and kicking off a reconnect on failure.
func (s *NetworkSink) deliver(p []byte) {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()

	if conn == nil {
		atomic.AddInt64(&s.drops, 1)
		s.requestReconnect()
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(s.timeout))
	if _, err := conn.Write(p); err != nil {
		s.connMu.Lock()
		if s.conn == conn {
			_ = conn.Close()
			s.conn = nil
		}
		s.connMu.Unlock()
		atomic.AddInt64(&s.drops, 1)
		s.requestReconnect()
	}
}

// WriteRecord marshals r per the wire format and writes it terminated by a
// newline; callers needing the raw Formatter.Format interface should wrap
// NetworkSink in FormattedWriter with a JSONFormatter instead, which writes
// through Write below.
func (s *NetworkSink) WriteRecord(r *Record) error {
	wr := wireRecord{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		Level:     r.Level.Upper(),
		Message:   r.Message,
		Host:      s.host,
	}
	if r.Caller.Valid {
		wr.File = r.Caller.File
		wr.Line = r.Caller.Line
		wr.Function = r.Caller.Function
	}
	data, err := networkJSON.Marshal(wr)
	if err != nil {
		return WrapLoggerError(err, ErrCodeEncodingFailed, "failed to marshal network wire record")
	}
	data = append(data, '\n')
	_, err = s.Write(data)
	return err
}

// Write enqueues p for the sender worker, copying it so the caller's
// buffer (often borrowed from a pool) can be reused immediately. The
// queue's drop-oldest policy means Write itself essentially never fails;
// delivery failures surface through IsHealthy and the drop counter instead.
func (s *NetworkSink) Write(p []byte) (int, error) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return 0, NewLoggerError(ErrCodeNetworkTimeout, "network sink is closed")
	}
	cp := append([]byte(nil), p...)
	if s.queue.Len() >= networkSinkQueueSize {
		// the push below evicts the oldest queued line
		atomic.AddInt64(&s.drops, 1)
	}
	s.queue.Push(cp)
	return len(p), nil
}

func (s *NetworkSink) Sync() error {
	deadline := time.Now().Add(s.timeout)
	for s.queue.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return nil
}

func (s *NetworkSink) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	_ = s.Sync()
	close(s.stopCh)
	s.queue.Stop()
	s.wg.Wait()

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *NetworkSink) Capabilities() SinkCapability {
	return CapNetwork
}

// Name returns "network:<network>:<addr>".
func (s *NetworkSink) Name() string {
	return fmt.Sprintf("network:%s:%s", s.network, s.addr)
}

// IsHealthy reports false while the sink is disconnected and its
// reconnect worker has not yet re-established the connection.
func (s *NetworkSink) IsHealthy() bool {
	return atomic.LoadInt32(&s.unhealthy) == 0
}

// DroppedCount returns the number of lines dropped because the queue was
// full or the connection was unavailable at delivery time.
func (s *NetworkSink) DroppedCount() int64 {
	return atomic.LoadInt64(&s.drops)
}
