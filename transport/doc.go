// Package transport provides the HTTP/TLS transport for MSGRPC.
//
// The transport layer handles:
//   - HTTP/HTTPS connections
//   - TLS configuration
//   - Optional client-side rate limiting
package transport
