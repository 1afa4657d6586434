// Package sanitizer provides input normalization for applicant data entered at the desk.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions handle invalid input gracefully, typically by returning
// the input unchanged or an empty string rather than errors, so validation can report it.
//
// Normalization includes:
//   - Phone numbers: Convert to E.164 format (+62...) with Indonesia as the default region
//   - Identity numbers (NIK, KK): keep digits only
//   - Document numbers (SKPWNI, SKDWNI, SKBWNI): collapse whitespace, uppercase
//   - Names and notes: collapse whitespace, trim leading/trailing spaces
//   - Email: trim and lowercase
package sanitizer
