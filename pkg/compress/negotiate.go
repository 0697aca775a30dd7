package compress

import (
	"strconv"
	"strings"
)

// Method identifies a content encoding, named by its Accept-Encoding token.
type Method string

const (
	Brotli   Method = "br"
	Gzip     Method = "gzip"
	Deflate  Method = "deflate"
	Identity Method = "identity"
)

// preferenceOrder is the server-side preference when several encodings are
// acceptable to the client.
var preferenceOrder = []Method{Brotli, Gzip, Deflate}

// Negotiate selects the encoding for a request: the first server-enabled
// method, in preference order, that the client accepts with quality > 0.
// Returns Identity when the header is empty or nothing matches.
func Negotiate(acceptEncoding string, enabled map[Method]bool) Method {
	if acceptEncoding == "" {
		return Identity
	}

	qualities := parseAcceptEncoding(acceptEncoding)
	for _, method := range preferenceOrder {
		if !enabled[method] {
			continue
		}
		if q, ok := qualities[string(method)]; ok && q > 0 {
			return method
		}
	}
	return Identity
}

// parseAcceptEncoding parses a comma-separated list of encoding[;q=value]
// tokens into a quality map. A missing or malformed q-value counts as 1.
func parseAcceptEncoding(header string) map[string]float64 {
	qualities := make(map[string]float64)
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		encoding := token
		quality := 1.0
		if idx := strings.IndexByte(token, ';'); idx >= 0 {
			encoding = strings.TrimSpace(token[:idx])
			params := strings.TrimSpace(token[idx+1:])
			if strings.HasPrefix(params, "q=") {
				if q, err := strconv.ParseFloat(params[2:], 64); err == nil {
					quality = q
				}
			}
		}
		qualities[strings.ToLower(encoding)] = quality
	}
	return qualities
}
