// Package base64 implements the unpadded base64url encoding used by every
// JOSE serialization (RFC 7515 Section 2).
//
// Unlike standard base64 it uses "-" and "_" in place of "+" and "/", never
// writes "=" padding, and rejects padded or non-canonical input when
// decoding, so that each byte string has exactly one encoding.
//
// http://www.rfc-editor.org/rfc/rfc4648#section-5
package base64
