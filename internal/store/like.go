package store

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring LIKE pattern for q with the LIKE
// metacharacters escaped. q is expected to be lower-cased already.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
