// Package models defines core data structures for go-msgboard
package models

import "sort"

// DefaultUsername is stored when a submission carries no username field
const DefaultUsername = "Anonymous"

// Message represents a single submitted guestbook entry
type Message struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Posts maps a decimal epoch-seconds key to the message stored under it.
// Two submissions in the same second share a key; the later one wins.
type Posts map[string]Message

// Keys returns the post keys in ascending order.
// Equal-width epoch-seconds keys sort chronologically.
func (p Posts) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
