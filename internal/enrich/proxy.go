package enrich

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// proxyFunc builds the transport proxy selector. With nothing configured it
// falls back to the HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment.
func proxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	cfg := &httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}
	pick := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return pick(req.URL)
	}
}
