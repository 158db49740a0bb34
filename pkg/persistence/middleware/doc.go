// Package middleware wraps sinks to protect personal data before it reaches the target:
// masking fields by name, or encrypting them with AES-GCM.
package middleware
