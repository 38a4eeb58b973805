package protocol

import (
	"net"
	"strconv"
)

// NormalizeAddr appends defaultPort when addr carries no port.
func NormalizeAddr(addr string, defaultPort int) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(defaultPort))
}
