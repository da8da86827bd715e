// Package language normalizes the language tags found on media streams.
//
// Codes are canonicalized with golang.org/x/text so "eng", "en", and
// "english" all resolve to "en", and display names come from the x/text
// English namer.
package language
