// Package validate holds the field-level rules a term must satisfy before
// it can be approved.
package validate

import (
	"regexp"

	"lexhub/api/internal/dict"
)

// Display names of the validated fields. Messages quote these verbatim.
const (
	FieldTerm         = "Term"
	FieldTranslation  = "Translation"
	FieldDefinition   = "Definition"
	FieldCategory     = "Grammatical Category"
	FieldTheme        = "Theme"
	FieldLanguage     = "Language"
	FieldLanguageCode = "Language Code"
)

var (
	capitalizedWords = regexp.MustCompile(`^[A-Z][a-z]*(\s[A-Z][a-z]*)*$`)
	allUppercase     = regexp.MustCompile(`^[A-Z]+$`)
	specialChars     = regexp.MustCompile(`[^a-zA-Z\s]`)
)

// Fields exempt from the per-word capitalization rule. Language is
// deliberately absent: a multi-word language name must capitalize every
// word, which is a documented quirk of the rule set.
var capitalizationExempt = map[string]struct{}{
	FieldDefinition: {},
	FieldTerm:       {},
	FieldTheme:      {},
	FieldCategory:   {},
}

// Fields allowed to carry arbitrary characters. Everything else rejects
// anything outside [a-zA-Z\s], which also rejects legitimately non-Latin
// names; that limitation is part of the contract, not to be fixed here.
var charsetExempt = map[string]struct{}{
	FieldDefinition: {},
	FieldTerm:       {},
}

// Field checks one named field and returns the error message, or "" when
// the value is valid. Rules are evaluated in order; the first match wins.
func Field(name, value string) string {
	if value == "" && name != FieldLanguageCode {
		return name + " must not be empty."
	}
	if _, exempt := capitalizationExempt[name]; !exempt && name != FieldLanguageCode {
		if !capitalizedWords.MatchString(value) {
			return name + " must start with a capital letter followed by lowercase letters."
		}
	}
	if name == FieldLanguageCode && value != "" && !allUppercase.MatchString(value) {
		return name + " must be uppercase."
	}
	if _, exempt := charsetExempt[name]; !exempt && name != FieldLanguageCode {
		if specialChars.MatchString(value) {
			return name + " must not contain special characters."
		}
	}
	return ""
}

// ApproveData validates the fixed field set of an approval payload and
// collects every failure; there is no short-circuit across fields. The
// returned slice replaces any previously displayed errors in full. An
// empty slice means the payload is valid.
func ApproveData(data dict.ApproveData) []string {
	fields := []struct {
		name  string
		value string
	}{
		{FieldTerm, data.Term},
		{FieldCategory, data.GrammaticalCategory},
		{FieldTheme, data.Theme},
		{FieldLanguage, data.Language},
		{FieldLanguageCode, data.LanguageCode},
	}

	var messages []string
	for _, field := range fields {
		if msg := Field(field.name, field.value); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages
}
