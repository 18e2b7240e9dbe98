// Package jose groups the JavaScript Object Signing and Encryption (JOSE)
// packages of this module:
//
//   - jws signs and verifies compact JWS tokens (RS, PS, HS, ES and EdDSA)
//   - jwe wraps content encryption keys with AES Key Wrap and PBES2
//   - jwt builds JSON Web Tokens on top of jws
//   - keyutil converts RSA keys between DER, PEM and JWK
//   - jwk, jwa and header hold the shared JOSE data model
//   - joseerror defines the error kinds every package reports
//
// Related RFCs:
//   - RFC3394 https://datatracker.ietf.org/doc/html/rfc3394 AES Key Wrap
//   - RFC7515 https://datatracker.ietf.org/doc/html/rfc7515 JWS, JSON Web Signature
//   - RFC7516 https://datatracker.ietf.org/doc/html/rfc7516 JWE, JSON Web Encryption
//   - RFC7517 https://datatracker.ietf.org/doc/html/rfc7517 JWK, JSON Web Key
//   - RFC7518 https://datatracker.ietf.org/doc/html/rfc7518 JWA, JSON Web Algorithms
//   - RFC7519 https://datatracker.ietf.org/doc/html/rfc7519 JWT, JSON Web Token
//   - RFC7797 https://datatracker.ietf.org/doc/html/rfc7797 JWS Unencoded Payload Option
//
// Related Information:
//   - https://datatracker.ietf.org/wg/jose/charter/
package jose
