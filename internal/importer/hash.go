package importer

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize joins the cleaned fields of e with newlines. Each field is
// lowercased, trimmed and has CRLF line endings folded to LF.
func Normalize(e Entry) string {
	clean := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		return strings.ReplaceAll(p, "\r\n", "\n")
	}
	return strings.Join([]string{clean(e.Question), clean(e.Answer), clean(e.Context)}, "\n")
}

// Hash returns the hex SHA-256 of the normalized entry.
func Hash(e Entry) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(Normalize(e))))
}
