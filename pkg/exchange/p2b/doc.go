// Package p2b implements the exchange adapter for the p2pb2b venue.
//
// The venue's REST API is irregular: the same concept changes field names
// between endpoints (vol/volume, id/orderId, time/deal_time/ctime),
// numbers arrive as strings on one endpoint and JSON numbers on another,
// timestamps carry fractional seconds, and the candle arrays order their
// fields open, close, high, low rather than OHLC. The normalizer maps all
// of that onto the canonical types in pkg/core with exact decimal
// arithmetic throughout.
//
// Private endpoints are signed per the venue scheme: the request body,
// extended with the API path and a strictly increasing millisecond nonce,
// is serialized with sorted keys, base64-encoded into X-TXC-PAYLOAD, and
// authenticated with a lowercase hex HMAC-SHA512 over that payload in
// X-TXC-SIGNATURE.
//
// Register the adapter by importing this package and build it through
// exchange.New("p2b", cfg), or construct it directly with New.
package p2b
