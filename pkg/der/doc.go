// Package der builds and reads the small subset of ASN.1 DER needed to move
// RSA and OKP (Ed25519, Ed448) keys between PKCS#1, PKCS#8 and SPKI.
//
// PKCS#1 structures are wrapped into PKCS#8 and SPKI envelopes opaquely, as
// the payload of an AlgorithmIdentifier naming rsaEncryption, rather than
// being re-encoded field by field.
//
// Related RFCs:
//   - RFC8017 https://datatracker.ietf.org/doc/html/rfc8017#appendix-A.1 PKCS#1
//   - RFC5208 https://datatracker.ietf.org/doc/html/rfc5208#section-5 PKCS#8
//   - RFC5280 https://datatracker.ietf.org/doc/html/rfc5280#section-4.1 SPKI
//   - RFC8410 https://datatracker.ietf.org/doc/html/rfc8410 Ed25519 and Ed448
package der
