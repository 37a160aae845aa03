package common

import "regexp"

// CompilePrefix compiles a pattern that only matches at the start of the
// input, the way rule patterns are evaluated.
func CompilePrefix(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)`)
}
