package web

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedForm is returned for form bodies that can not be decoded
var ErrMalformedForm = errors.New("malformed form body")

// parseForm decodes an application/x-www-form-urlencoded body.
// Every non-empty pair must contain '='; the first '=' separates key and value.
// Repeated keys keep the last value.
func parseForm(body string) (map[string]string, error) {
	fields := make(map[string]string)
	if body == "" {
		return fields, nil
	}
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: pair %q has no '='", ErrMalformedForm, pair)
		}
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrMalformedForm, rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrMalformedForm, key, err)
		}
		fields[key] = value
	}
	return fields, nil
}
