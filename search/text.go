package search

import "strings"

// Words ignored when checking whether a document quotes the query.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// terms is the lowercased, punctuation-trimmed word set of a text with stop
// words removed.
type terms map[string]struct{}

func termsOf(text string) terms {
	words := strings.Fields(text)
	out := make(terms, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			out[cleaned] = struct{}{}
		}
	}
	return out
}

// coveredBy reports whether every term appears in document. An empty term
// set covers nothing.
func (t terms) coveredBy(document string) bool {
	if len(t) == 0 {
		return false
	}
	doc := termsOf(document)
	for term := range t {
		if _, ok := doc[term]; !ok {
			return false
		}
	}
	return true
}
