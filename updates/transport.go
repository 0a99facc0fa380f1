package updates

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
)

// Proxy describes an optional HTTP proxy. An empty Host disables it.
type Proxy struct {
	Host     string
	Port     string
	Username string
	Password string
}

// URL returns the proxy URL, with credentials only when Username is set
func (p Proxy) URL() *url.URL {
	if p.Host == "" {
		return nil
	}

	host := p.Host
	if p.Port != "" {
		host = net.JoinHostPort(p.Host, p.Port)
	}

	u := &url.URL{Scheme: "http", Host: host, Path: "/"}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// newTransport builds the transport shared by API calls and downloads.
// Environment proxy variables are ignored: only the configured proxy is used.
func newTransport(proxy Proxy, insecureSkipVerify bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.Proxy = nil
	if proxyURL := proxy.URL(); proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	transport.TLSClientConfig = &tls.Config{
		// The vendor certificate chain is not trusted by default on the
		// target systems, see Options.InsecureSkipVerify
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec
	}
	return transport
}
