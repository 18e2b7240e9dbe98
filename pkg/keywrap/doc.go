// Package keywrap implements the AES Key Wrap algorithm.
//
// EncryptBlock and DecryptBlock apply the AES block cipher to exactly one
// 128-bit block, which is the primitive the wrap construction is built on.
// Wrap and Unwrap implement the multi-block construction with the default
// initial value A6A6A6A6A6A6A6A6.
//
// https://datatracker.ietf.org/doc/html/rfc3394
package keywrap
