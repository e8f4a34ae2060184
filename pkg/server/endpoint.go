package server

import "strings"

// normalizeAddr turns a bare port from config into a listen address.
// host:port values pass through untouched.
func normalizeAddr(addr string) string {
	if addr == "" {
		return ":0"
	}

	if strings.Contains(addr, ":") {
		return addr
	}

	return ":" + addr
}
