package utils

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns a client with a bounded dial and total request time,
// so a hung provider cannot stall a polling cycle or a webhook request.
func NewHTTPClient(connectTimeout, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
