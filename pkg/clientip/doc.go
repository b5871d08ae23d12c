// Package clientip resolves the originating client address of a request
// served behind proxies or a CDN.
//
// Headers are checked in order (CF-Connecting-IP, X-Forwarded-For,
// X-Real-IP by default) and the first value that parses as an IP wins;
// RemoteAddr is the fallback. IPv4-mapped IPv6 addresses are unmapped and
// zones are dropped so the result is stable as a rate limit key.
//
//	r.Use(clientip.Middleware())
//	...
//	ip := clientip.FromContext(r.Context())
//
// Only enable headers your edge actually sets; anything else can be forged
// by the client.
package clientip
