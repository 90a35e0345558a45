// Package auth provides bearer-token authentication for the gateway.
//
// Tokens are HS256-signed JWTs carrying a "sub" claim (the subject) and a
// "scope" claim (a string array of capability labels). Verification pins the
// signing method to HMAC, so "none" and asymmetric algorithms are rejected
// outright, and enforces standard "exp" expiry.
//
// Authenticate turns an *http.Request into an Identity or one of two stable
// rejections: "Missing authorization" for absent/malformed headers and
// "Invalid token" for everything a verifier rejects. The Identity travels on
// the request context via WithIdentity/FromContext and is discarded once the
// response is sent.
//
// The signing secret comes from configuration or the MCP_JWT_SECRET
// environment variable; ResolveSecret falls back to a random per-process
// secret for development, which deliberately cannot validate tokens across
// restarts.
package auth
