package geoip

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ipEchoURLs are services that return the caller's public IP as plain
// text. They are tried in order when discovering a proxy's exit IP.
var ipEchoURLs = []string{
	"https://api.ipify.org",
	"https://checkip.amazonaws.com",
	"https://ifconfig.me/ip",
}

const echoTimeout = 10 * time.Second

// Geo is the result of resolving a proxy's location. Either field may
// be empty when the database has no data for the exit IP.
type Geo struct {
	TimeZone string
	Locale   string
}

// ResolveProxyGeo determines the timezone and locale to present for
// traffic routed through the given proxy. It prefers the exit IP seen
// by the wider internet; the proxy gateway's own address is a
// fallback, since gateway and exit frequently differ.
func (c *Cache) ResolveProxyGeo(ctx context.Context, reader Reader, proxyURL string) (Geo, bool) {
	ip := c.resolveExitIP(ctx, proxyURL)
	if ip == "" {
		ip = c.resolveGatewayIP(proxyURL)
	}
	if ip == "" {
		return Geo{}, false
	}

	city, err := reader.City(ip)
	if err != nil {
		c.log.Debug("geoip lookup failed", "ip", ip, "error", err)
		return Geo{}, false
	}

	geo := Geo{TimeZone: city.TimeZone}
	if locale, ok := LocaleForCountry(city.CountryISO); ok {
		geo.Locale = locale
	}
	c.log.Debug("geoip resolved",
		"ip", ip, "timezone", geo.TimeZone, "country", city.CountryISO, "locale", geo.Locale)
	return geo, true
}

// resolveExitIP discovers the proxy's public exit IP by asking an echo
// service through the proxy itself.
func (c *Cache) resolveExitIP(ctx context.Context, proxyURL string) string {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return ""
	}
	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
		Timeout:   echoTimeout,
	}

	for _, echo := range ipEchoURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, echo, nil)
		if err != nil {
			continue
		}
		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
		resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}
		ip := strings.TrimSpace(string(body))
		if net.ParseIP(ip) == nil {
			continue
		}
		c.log.Debug("proxy exit ip discovered", "service", echo, "ip", ip)
		return ip
	}
	c.log.Debug("could not discover exit ip through proxy")
	return ""
}

// resolveGatewayIP resolves the proxy URL's hostname to an address.
func (c *Cache) resolveGatewayIP(proxyURL string) string {
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	host := parsed.Hostname()

	if net.ParseIP(host) != nil {
		return host
	}
	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		c.log.Debug("failed to resolve proxy hostname", "host", host, "error", err)
		return ""
	}
	return addrs[0]
}
