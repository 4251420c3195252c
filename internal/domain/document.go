package domain

import "encoding/json"

// Document is one manual section: the section key and its newline-joined body.
type Document struct {
	ID   string
	Text string
}

// Match is a document returned by a similarity query.
type Match struct {
	ID    string
	Text  string
	Score float32
}

// RetrievalResult holds the top-K matches of one query, best first.
type RetrievalResult []Match

// Empty reports whether the query produced no matches.
func (r RetrievalResult) Empty() bool { return len(r) == 0 }

// Map returns the id -> text view of the result.
func (r RetrievalResult) Map() map[string]string {
	m := make(map[string]string, len(r))
	for _, match := range r {
		m[match.ID] = match.Text
	}
	return m
}

// JSON renders the id -> text view as a JSON object.
func (r RetrievalResult) JSON() string {
	data, err := json.Marshal(r.Map())
	if err != nil {
		return "{}"
	}
	return string(data)
}
