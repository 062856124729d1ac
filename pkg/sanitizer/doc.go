// Package sanitizer normalizes caller input before it reaches validation,
// storage or an outbound gateway.
//
// Normalization functions are idempotent. Phone numbers are converted to
// E.164 using the configured default regions for numbers written without an
// international prefix.
package sanitizer
