package models

import "regexp"

// User-facing texts shown in place of a reply
const (
	FallbackReplyFR = "Bonjour, je suis prêt à vous aider avec les documents disponibles."
	FallbackReplyEN = "Hello, I am ready to help you with the available documents."

	GenericErrorMessage = "Désolé, une erreur technique est survenue. Veuillez réessayer."
	CanceledMessage     = "Requête annulée."
)

var frenchHints = regexp.MustCompile(
	`(?i)\b(bonjour|salut|merci|comment\s+ça|comment\s+faire|comment\s+puis-je|` +
		`vous|je\s+suis|je\s+m'appelle|au\s+revoir|s'il\s+vous\s+pla[iî]t|quels?|quelles?|sont|les)\b`,
)

// LooksFrench is a cheap heuristic on greetings and common words
func LooksFrench(text string) bool {
	return frenchHints.MatchString(text)
}

// FallbackReply returns the text used when a reply completes with no content
func FallbackReply(prompt string) string {
	if LooksFrench(prompt) {
		return FallbackReplyFR
	}
	return FallbackReplyEN
}
