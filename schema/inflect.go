package schema

import "strings"

// InferTableName derives the referenced table from a foreign id column:
// the "_id" suffix is removed and the remainder pluralised. It only knows
// regular English plurals; irregular names must be passed to Constrained.
func InferTableName(column string) string {
	return Pluralize(strings.TrimSuffix(column, "_id"))
}

// Pluralize applies the regular English plural rules to the last word of a
// snake_case name.
func Pluralize(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)
	switch {
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "z"), strings.HasSuffix(lower, "ch"),
		strings.HasSuffix(lower, "sh"):
		return word + "es"
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !isVowel(lower[len(lower)-2]):
		return word[:len(word)-1] + "ies"
	}
	return word + "s"
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}
