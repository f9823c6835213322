package net

import (
	"fmt"
	"log"
	"net"
	"strings"
)

// LinkScheme prefixes share links; passing one as the first argument joins
// that host.
const LinkScheme = "syncboard://"

// ShareLink builds the link participants use to join a host.
func ShareLink(ip string, port int) string {
	return fmt.Sprintf("%s%s", LinkScheme, net.JoinHostPort(ip, fmt.Sprint(port)))
}

// ParseShareLink extracts "host:port" from a share link.
func ParseShareLink(link string) (string, bool) {
	if !strings.HasPrefix(link, LinkScheme) {
		return "", false
	}
	addr := strings.TrimSuffix(strings.TrimPrefix(link, LinkScheme), "/")
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", false
	}
	return addr, true
}

// GetOutgoingIP finds the preferred local IP address for the host to share.
func GetOutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// No route to the internet; fall back to the interfaces.
		ip := firstIPv4()
		if ip.IsLoopback() {
			log.Println("[NET] No suitable local IP found, share link uses loopback")
		}
		return ip.String()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
