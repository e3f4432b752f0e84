// Package language normalizes the language codes used for multi-lingual
// narration.
//
// Codes from scripts and configuration ("EN", "english", "ja-jp") are reduced to
// canonical BCP 47 tags with golang.org/x/text/language so that audio file names
// and progress keys stay stable regardless of how a language was spelled.
package language
