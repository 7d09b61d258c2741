// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// CommandLine renders the invocation as a copy-pasteable shell command line.
func CommandLine(inv Invocation) string {
	words := make([]string, 0, len(inv.Args)+1)
	words = append(words, quote(inv.Program))
	for _, arg := range inv.Args {
		words = append(words, quote(arg))
	}
	return strings.Join(words, " ")
}

func quote(word string) string {
	q, err := syntax.Quote(word, syntax.LangBash)
	if err != nil {
		// Only words with NUL bytes cannot be quoted.
		return word
	}
	return q
}
