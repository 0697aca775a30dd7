// Package compress implements response compression for the edge layer:
// Accept-Encoding negotiation, brotli/gzip/deflate codecs bound at
// construction time, and a bounded LRU memoization of compressed artifacts.
//
// # Negotiation
//
// The client's Accept-Encoding header is parsed into a quality map and the
// server preference order (brotli, gzip, deflate) picks the first encoding
// both sides accept. Identity is the universal fallback:
//
//	method := compress.Negotiate("gzip;q=0.5, br;q=0.8", enabled) // Brotli
//
// # Orchestration
//
//	orch, err := compress.New(compress.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	resp = orch.Handle(req, resp)
//
// Responses are only compressed when every precondition holds: GET/HEAD,
// no prior Content-Encoding, compressible content type, path not excluded,
// and body size within the configured bounds. Any codec failure serves the
// original response; compression is never request-failing.
package compress
