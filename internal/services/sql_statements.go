package services

import "strings"

// transactionControl lists statements that would end or nest the sandbox
// transaction. PREPARE is only rejected when followed by TRANSACTION.
var transactionControl = map[string]bool{
	"BEGIN":     true,
	"START":     true,
	"COMMIT":    true,
	"END":       true,
	"ROLLBACK":  true,
	"ABORT":     true,
	"SAVEPOINT": true,
	"RELEASE":   true,
}

// transactionControlStatement returns the leading keywords of the first
// statement in the batch that controls transactions, or "".
func transactionControlStatement(query string) string {
	for _, head := range statementHeads(query) {
		if len(head) == 0 {
			continue
		}
		if transactionControl[head[0]] {
			return head[0]
		}
		if head[0] == "PREPARE" && len(head) > 1 && head[1] == "TRANSACTION" {
			return "PREPARE TRANSACTION"
		}
	}
	return ""
}

// statementHeads splits a batch on top-level semicolons and returns the first
// two upper-cased words of each statement. String literals, quoted
// identifiers, dollar-quoted bodies and comments are skipped.
func statementHeads(query string) [][]string {
	var heads [][]string
	var current []string
	wordStart := -1

	endWord := func(i int) {
		if wordStart < 0 {
			return
		}
		if len(current) < 2 {
			current = append(current, strings.ToUpper(query[wordStart:i]))
		}
		wordStart = -1
	}
	endStatement := func() {
		if len(current) > 0 {
			heads = append(heads, current)
		}
		current = nil
	}
	// A literal or quoted name at the start means the statement has no keyword head.
	startedByLiteral := func() {
		if len(current) == 0 {
			current = []string{""}
		}
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		if isWordByte(c) || (c == '$' && wordStart >= 0) {
			if wordStart < 0 {
				wordStart = i
			}
			continue
		}

		escapes := c == '\'' && wordStart >= 0 && strings.EqualFold(query[wordStart:i], "E")
		endWord(i)

		switch {
		case c == ';':
			endStatement()
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			if nl := strings.IndexByte(query[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				i = len(query)
			}
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			i = skipBlockComment(query, i)
		case c == '\'':
			startedByLiteral()
			i = skipQuoted(query, i, '\'', escapes)
		case c == '"':
			startedByLiteral()
			i = skipQuoted(query, i, '"', false)
		case c == '$':
			if tag := dollarTag(query, i); tag != "" {
				startedByLiteral()
				if end := strings.Index(query[i+len(tag):], tag); end >= 0 {
					i += len(tag) + end + len(tag) - 1
				} else {
					i = len(query)
				}
			}
		}
	}
	endWord(len(query))
	endStatement()
	return heads
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// skipQuoted returns the index of the closing quote. A doubled quote is part
// of the literal; with escapes set a backslash escapes the next byte.
func skipQuoted(s string, open int, quote byte, escapes bool) int {
	for i := open + 1; i < len(s); i++ {
		switch {
		case escapes && s[i] == '\\':
			i++
		case s[i] == quote:
			if i+1 < len(s) && s[i+1] == quote {
				i++
				continue
			}
			return i
		}
	}
	return len(s)
}

// skipBlockComment returns the index of the closing slash. Block comments nest.
func skipBlockComment(s string, open int) int {
	depth := 0
	for i := open; i+1 < len(s); i++ {
		switch {
		case s[i] == '/' && s[i+1] == '*':
			depth++
			i++
		case s[i] == '*' && s[i+1] == '/':
			depth--
			i++
			if depth == 0 {
				return i
			}
		}
	}
	return len(s)
}

// dollarTag returns the $tag$ opening at i, or "" when i starts a positional
// parameter such as $1 or a lone dollar sign.
func dollarTag(s string, i int) string {
	for j := i + 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[i : j+1]
		}
		if !isWordByte(c) || (j == i+1 && c >= '0' && c <= '9') {
			return ""
		}
	}
	return ""
}
