package core

import (
	"context"
	"errors"
	"net"
)

// ErrPeerNotFound is returned by a PeerResolver that has no name for an address.
var ErrPeerNotFound = errors.New("peer not found")

// ConnectionHandler owns the full lifecycle of one accepted connection.
// HandleConnection must close the connection before returning.
type ConnectionHandler interface {
	HandleConnection(conn net.Conn)
}

// ConnectionHandlerFunc adapts a function to ConnectionHandler.
type ConnectionHandlerFunc func(conn net.Conn)

func (f ConnectionHandlerFunc) HandleConnection(conn net.Conn) { f(conn) }

// PeerResolver defines how to turn a remote address into a readable name
// (e.g. "attacker" or "lab/victim-0"). It is purely a lookup mechanism.
type PeerResolver interface {
	Resolve(ctx context.Context, addr net.Addr) (string, error)
}

// PeerIP extracts the IP of a TCP or UDP address, or parses addr.String().
func PeerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	return net.ParseIP(host)
}
