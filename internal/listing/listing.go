// Package listing orders catalog entries for display.
package listing

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"doccatalog/internal/model"
)

// Field is a sortable column of the catalog.
type Field string

const (
	FieldName       Field = "name"
	FieldUploadDate Field = "uploadDate"
	FieldSubject    Field = "subject"
	FieldKeywords   Field = "keywords"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// DefaultRecentLimit is the length of the "recent uploads" view.
const DefaultRecentLimit = 5

var (
	ErrInvalidField     = errors.New("invalid sort field")
	ErrInvalidDirection = errors.New("invalid sort direction")
)

// ParseField validates a field name, ignoring case. The empty string selects uploadDate.
func ParseField(s string) (Field, error) {
	if s == "" {
		return FieldUploadDate, nil
	}
	for _, f := range []Field{FieldName, FieldUploadDate, FieldSubject, FieldKeywords} {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// ParseDirection validates a direction, ignoring case. The empty string selects desc.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(s)); d {
	case "":
		return Desc, nil
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Sort returns a sorted copy of entries. Equal keys are ordered by id, so for every field
// the result under Desc is the exact reverse of the result under Asc.
func Sort(entries []model.Document, field Field, dir Direction) []model.Document {
	out := slices.Clone(entries)
	if len(out) < 2 {
		return out
	}

	// Collator keeps internal buffers and is not safe to share.
	c := collate.New(language.English)
	sign := 1
	if dir == Desc {
		sign = -1
	}

	slices.SortFunc(out, func(a, b model.Document) int {
		n := compare(c, field, &a, &b)
		if n == 0 {
			n = strings.Compare(a.ID, b.ID)
		}
		return sign * n
	})
	return out
}

func compare(c *collate.Collator, field Field, a, b *model.Document) int {
	switch field {
	case FieldName:
		return c.CompareString(a.Name, b.Name)
	case FieldSubject:
		return c.CompareString(a.Subject, b.Subject)
	case FieldKeywords:
		// compared as one joined string, not element-wise
		return c.CompareString(strings.Join(a.Keywords, ","), strings.Join(b.Keywords, ","))
	default:
		return a.UploadDate.Compare(b.UploadDate)
	}
}

// Recent returns the newest entries, at most limit of them. A non-positive limit means
// DefaultRecentLimit.
func Recent(entries []model.Document, limit int) []model.Document {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	sorted := Sort(entries, FieldUploadDate, Desc)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Toggle applies a click on a column header: the active column flips its direction,
// any other column becomes active in ascending order.
func Toggle(current Field, dir Direction, clicked Field) (Field, Direction) {
	if clicked != current {
		return clicked, Asc
	}
	if dir == Asc {
		return current, Desc
	}
	return current, Asc
}
