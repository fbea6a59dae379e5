// Package refcodec normalizes the loosely encoded reference fields of catalog
// records: image lists (JSON arrays, comma lists, bracketed pseudo-JSON,
// single URLs, bare identifiers) and bracketed coordinate pairs.
//
// Decoding never fails. Image decoding degrades to an empty list; position
// decoding reports absence so forms can show blank coordinates. Encoding
// always produces a well-formed value, defaulting missing coordinates to 0.
package refcodec
