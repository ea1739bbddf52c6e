// Package model contains the catalog's domain types.
// Types here are shared by every layer (http, service, repository) and hold no business logic
// beyond formatting of the persisted timestamp.
package model

// KeywordsOrEmpty returns kw, or an empty non-nil slice when kw is nil,
// so that JSON output always renders an array.
func KeywordsOrEmpty(kw []string) []string {
	if kw == nil {
		return []string{}
	}
	return kw
}
