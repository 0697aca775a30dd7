package cache

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DeviceClass is a coarse client classification derived from the User-Agent.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
)

// KeyGenerator derives deterministic cache keys from request attributes.
//
// The key is a pure function of {method, path, normalized query, configured
// vary header values, device class, region}: two requests differing only in
// a header outside the vary list produce the same key. The request body is
// never read.
type KeyGenerator struct {
	varyHeaders  []string
	regionHeader string
}

// NewKeyGenerator creates a key generator. varyHeaders is the bounded list
// of header names that participate in the key; regionHeader names the
// trusted edge-provided geography header (empty value tolerated).
func NewKeyGenerator(varyHeaders []string, regionHeader string) *KeyGenerator {
	vary := make([]string, len(varyHeaders))
	copy(vary, varyHeaders)
	sort.Strings(vary)
	return &KeyGenerator{
		varyHeaders:  vary,
		regionHeader: regionHeader,
	}
}

// Generate computes the cache key for a request.
// Format: edge:<base36 xxhash64 of the canonical request string>.
func (g *KeyGenerator) Generate(r *http.Request) string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte('|')
	b.WriteString(r.URL.Path)
	b.WriteByte('|')
	b.WriteString(normalizeQuery(r.URL.RawQuery))

	for _, name := range g.varyHeaders {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(name))
		b.WriteByte('=')
		b.WriteString(r.Header.Get(name))
	}

	b.WriteByte('|')
	b.WriteString(string(ClassifyDevice(r.Header.Get("User-Agent"))))

	if g.regionHeader != "" {
		b.WriteByte('|')
		b.WriteString(r.Header.Get(g.regionHeader))
	}

	sum := xxhash.Sum64String(b.String())
	return "edge:" + strconv.FormatUint(sum, 36)
}

// normalizeQuery sorts query parameters so parameter order does not change
// the key. Values keep their raw encoding.
func normalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	params := strings.Split(rawQuery, "&")
	sort.Strings(params)
	return strings.Join(params, "&")
}

// ClassifyDevice maps a User-Agent to a coarse device class using substring
// tests. Tablets are checked before phones because tablet user agents often
// also contain "Mobile".
func ClassifyDevice(userAgent string) DeviceClass {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}
