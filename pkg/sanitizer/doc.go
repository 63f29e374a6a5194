// Package sanitizer normalizes user supplied text before validation and storage.
//
// All normalization functions are idempotent. Invalid input yields an empty string rather
// than an error so the validator reports it with the field name.
//
// Normalization includes:
//   - Phone numbers: E.164, national numbers parsed with the Indonesian region
//   - Names and addresses: collapse whitespace, trim
//   - Plates: upper case, single spaces
package sanitizer
