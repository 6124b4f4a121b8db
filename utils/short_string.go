package utils

import "fmt"

const shortHashLength = 16

// ShortenHash trims a hex hash or address down to its ends for log lines.
// Strings at or under sixteen characters come back unchanged.
func ShortenHash(hash string) string {
	if len(hash) <= shortHashLength {
		return hash
	}
	cut := shortHashLength / 2
	return fmt.Sprintf("%s...%s", hash[:cut], hash[len(hash)-cut:])
}
