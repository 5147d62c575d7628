// Package auth stores named profiles of Twitter OAuth 1.0a credentials.
//
// A Manager tries, in order, the system keyring, an AES-GCM encrypted file
// in the user's config directory and the TWCOLLECTOR_* environment
// variables. Reads return the first match; writes go to the first store
// that accepts them.
package auth
