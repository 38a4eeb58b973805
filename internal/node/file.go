package node

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// BuildStoragePath returns where name lives inside the storage directory.
func BuildStoragePath(dir, name string) string {
	return filepath.Join(dir, name)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// advertiseAddr turns a bound listener address into one reachable by other
// nodes. An unspecified host is replaced by the first non-loopback IPv4
// address of this machine.
func advertiseAddr(bound net.Addr) string {
	tcpAddr, ok := bound.(*net.TCPAddr)
	if !ok {
		return bound.String()
	}
	port := strconv.Itoa(tcpAddr.Port)
	if !tcpAddr.IP.IsUnspecified() {
		return net.JoinHostPort(tcpAddr.IP.String(), port)
	}
	return net.JoinHostPort(localIP(), port)
}

func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
