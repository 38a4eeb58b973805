package node

// SelectRandomPeer returns one of peers chosen by randFn, or "" if there
// are none.
func SelectRandomPeer(peers []string, randFn func(n int) int) string {
	if len(peers) == 0 {
		return ""
	}
	return peers[randFn(len(peers))]
}

// excluding returns peers without addr, preserving order.
func excluding(peers []string, addr string) []string {
	if addr == "" {
		return peers
	}
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		if p != addr {
			out = append(out, p)
		}
	}
	return out
}
