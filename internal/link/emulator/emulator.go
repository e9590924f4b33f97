// Package emulator implements the transport over UDP to an external device
// emulator process. One outbound datagram carries the full wire image of an
// exchange; the emulator answers with the per-device reply block.
package emulator

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mfranke/soniclink/internal/driver"
)

// Link talks to an emulator at a fixed address. It satisfies the same
// contract as the fieldbus link: Send/Receive report false for a transient
// miss and an error for a structural failure.
type Link struct {
	address    string
	port       int
	numDevices int
	cycleTicks uint16

	mu        sync.Mutex
	conn      *net.UDPConn
	remote    *net.UDPAddr
	lastReply []byte
}

// NewLink builds an unopened emulator link.
func NewLink(address string, port int, numDevices int, cycleTicks uint16) *Link {
	if cycleTicks == 0 {
		cycleTicks = 1
	}
	return &Link{
		address:    address,
		port:       port,
		numDevices: numDevices,
		cycleTicks: cycleTicks,
	}
}

// CycleTicks returns the configured bus cycle multiplier.
func (l *Link) CycleTicks() uint16 {
	return l.cycleTicks
}

// IsOpen reports whether the socket is up.
func (l *Link) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Open resolves the emulator address and creates the socket on an
// ephemeral local port.
func (l *Link) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return nil
	}

	ip, err := lookup(l.address)
	if err != nil {
		return fmt.Errorf("emulator address %s: %v", l.address, err)
	}
	l.remote = &net.UDPAddr{IP: ip, Port: l.port}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return fmt.Errorf("error opening UDP socket: %v", err)
	}
	l.conn = conn
	l.lastReply = nil

	return nil
}

// Close shuts the socket down.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

// Send transmits the wire image as one datagram.
func (l *Link) Send(tx *driver.TxDatagram) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return false, fmt.Errorf("link is closed")
	}
	if _, err := l.conn.WriteToUDP(tx.Data(), l.remote); err != nil {
		return false, fmt.Errorf("UDP write error: %v", err)
	}
	return true, nil
}

// Receive drains pending replies without blocking and overlays the newest
// one. Returns false while no reply has arrived yet.
func (l *Link) Receive(rx *driver.RxDatagram) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return false, fmt.Errorf("link is closed")
	}

	want := l.numDevices * driver.InputFrameSize
	buf := make([]byte, want)
	for {
		// Immediate deadline keeps the read non-blocking.
		l.conn.SetReadDeadline(time.Now())
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break
			}
			return false, fmt.Errorf("UDP read error: %v", err)
		}
		if n == want {
			l.lastReply = append(l.lastReply[:0], buf[:n]...)
		}
	}

	if l.lastReply == nil {
		return false, nil
	}
	if err := rx.Overlay(l.lastReply); err != nil {
		return false, err
	}
	return true, nil
}

// lookup resolves a hostname to its first IPv4 address.
func lookup(hostname string) (net.IP, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip, nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address found for %s", hostname)
}
