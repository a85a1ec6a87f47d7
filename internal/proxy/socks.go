// Package proxy builds the optional SOCKS5 transport the API backends
// use when the daemon sits behind a restricted network.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/proxy"
)

// NewSocksClient returns an http.Client dialing through the given SOCKS5
// address.
func NewSocksClient(socksAddr string) (*http.Client, error) {
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks dialer %s: %w", socksAddr, err)
	}

	transport := &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		},
	}
	return &http.Client{
		Transport: transport,
		Timeout:   120 * time.Second,
	}, nil
}

// ClientFromEnv reads VOXGATE_SOCKS_PROXY. Nil client (and nil error)
// when unset, meaning direct connections.
func ClientFromEnv() (*http.Client, error) {
	addr := os.Getenv("VOXGATE_SOCKS_PROXY")
	if addr == "" {
		return nil, nil
	}
	return NewSocksClient(addr)
}
