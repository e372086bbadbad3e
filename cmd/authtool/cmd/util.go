package cmd

import "strings"

// joinTokens joins positional role/ability arguments into the
// whitespace-separated spec form identity.SplitRoleTokens expects.
func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}
