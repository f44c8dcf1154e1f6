//
//  internal/requestinfo/requestinfo.go
//
//  Signup-origin metadata: a compact user-agent summary plus a country
//  hint for the request's source address.  Recorded on the customer row
//  at signup for abuse triage; both fields are best-effort and may be
//  empty.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a singleton MaxMind handle.  Safe for concurrent reads,
// which is all we ever perform.  Nil when no database is configured,
// in which case country lookups return "".
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database at startup.  Call it from
// main(); an empty path disables lookups without error.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoReader = r
	return nil
}

//
//  -----------------------------
//  Public API
//  -----------------------------
//

// Origin summarizes where a signup request came from.
type Origin struct {
	UASummary string // "Chrome 124 / macOS / Desktop", "" when no UA header
	Country   string // ISO 3166-1 alpha-2, "" when unknown
	IsBot     bool
}

// FromRequest extracts the origin summary from an HTTP request.
func FromRequest(r *http.Request) Origin {
	o := Origin{}

	if ua := r.Header.Get("User-Agent"); ua != "" {
		parsed := uasurfer.Parse(ua)
		o.IsBot = parsed.IsBot()
		o.UASummary = summarize(parsed)
	}

	o.Country = countryOf(clientIP(r))
	return o
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// summarize renders "Browser major / OS / device class".
func summarize(u *uasurfer.UserAgent) string {
	browser := strings.TrimPrefix(u.Browser.Name.String(), "Browser")
	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}
	device := strings.TrimPrefix(u.DeviceType.String(), "Device")

	var b strings.Builder
	b.WriteString(browser)
	if u.Browser.Version.Major > 0 {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(u.Browser.Version.Major))
	}
	b.WriteString(" / ")
	b.WriteString(osName)
	b.WriteString(" / ")
	b.WriteString(device)
	return b.String()
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// socket peer.
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}

// countryOf looks the address up in the MaxMind DB when available.
func countryOf(ip net.IP) string {
	if geoReader == nil || ip == nil {
		return ""
	}
	rec, err := geoReader.Country(ip)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}
