// Package tlsroots builds the trust store used to reach the backend.
//
// The system roots are always trusted; api.ca_file adds a PEM file or a
// directory of .pem/.crt/.cer files on top, for staging backends signed
// by a private CA.
package tlsroots
