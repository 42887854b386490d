package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

type ImgHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewImgHTTPClient(cfg HTTPClientConfig) (*ImgHTTPClient, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = DefaultKATimeout
	}
	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, c syscall.RawConn) error {
			return c.Control(setSocketOptions)
		},
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: cfg.Timeout,
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, NewConfigError("proxy", fmt.Errorf("invalid proxy URL %q: %w", cfg.ProxyURL, err))
		}
		if cfg.ProxyUsername != "" {
			if cfg.ProxyPassword != "" {
				proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
			} else {
				proxyURL.User = url.User(cfg.ProxyUsername)
			}
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &ImgHTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config: cfg,
	}, nil
}

func (c *ImgHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// Get issues a GET whose body the caller must close.
func (c *ImgHTTPClient) Get(ctx context.Context, link string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	return c.Do(req)
}
