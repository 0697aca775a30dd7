package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func allEnabled() map[Method]bool {
	return map[Method]bool{Brotli: true, Gzip: true, Deflate: true}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		enabled map[Method]bool
		want    Method
	}{
		{"empty_header", "", allEnabled(), Identity},
		{"identity_only", "identity", allEnabled(), Identity},
		{"plain_gzip", "gzip", allEnabled(), Gzip},
		{"brotli_preferred", "gzip, br", allEnabled(), Brotli},
		{"quality_does_not_override_preference", "gzip;q=0.5, br;q=0.8", allEnabled(), Brotli},
		{"zero_quality_excludes", "br;q=0, gzip", allEnabled(), Gzip},
		{"all_zero", "br;q=0, gzip;q=0, deflate;q=0", allEnabled(), Identity},
		{"malformed_quality_treated_as_one", "gzip;q=banana", allEnabled(), Gzip},
		{"whitespace_tolerated", "  gzip ;q=0.9 ,  br ", allEnabled(), Brotli},
		{"unknown_encodings_ignored", "zstd, compress", allEnabled(), Identity},
		{"case_insensitive", "GZIP", allEnabled(), Gzip},
		{"brotli_disabled_falls_back", "br, gzip", map[Method]bool{Gzip: true}, Gzip},
		{"deflate_last_resort", "deflate", allEnabled(), Deflate},
		{"nothing_enabled", "br, gzip, deflate", map[Method]bool{}, Identity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.header, tt.enabled))
		})
	}
}

func TestParseAcceptEncoding(t *testing.T) {
	qualities := parseAcceptEncoding("gzip;q=0.5, br;q=0.8, deflate")

	assert.Equal(t, 0.5, qualities["gzip"])
	assert.Equal(t, 0.8, qualities["br"])
	assert.Equal(t, 1.0, qualities["deflate"])
}
