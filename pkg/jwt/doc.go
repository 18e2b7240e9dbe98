// Package jwt implements JSON Web Tokens (JWTs) on top of the compact JWS
// serialization in package jws.
//
// A token is created with [New] from a claims set and a [jws.Signer], and
// read back with [Parse], which verifies the signature before decoding the
// claims. Registered claims are type checked in both directions, while time
// based claims are left to the caller to evaluate.
//
// https://datatracker.ietf.org/doc/html/rfc7519
package jwt
