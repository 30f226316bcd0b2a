// Package filter implements the filter toolbar: a set of categories, each a
// free-text search or a fixed selection, applied to a list of items.
package filter

import (
	"net/url"
	"strings"
)

// Type is how a category matches values.
type Type string

const (
	TypeSelect Type = "select"
	TypeSearch Type = "search"
)

// Option is one choice of a select category.
type Option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Category describes one filterable attribute of T.
type Category[T any] struct {
	Key         string
	Title       string
	Type        Type
	Placeholder string
	Options     []Option
	// Value extracts the attribute the category filters on.
	Value func(item T) string
}

// Values holds the active filter values, keyed by category key.
type Values map[string][]string

// Matches reports whether item matches any of vals. No values matches everything.
func (c Category[T]) Matches(item T, vals []string) bool {
	if len(vals) == 0 || c.Value == nil {
		return true
	}
	v := c.Value(item)
	for _, want := range vals {
		switch c.Type {
		case TypeSearch:
			if strings.Contains(strings.ToLower(v), strings.ToLower(want)) {
				return true
			}
		default:
			if v == want {
				return true
			}
		}
	}
	return false
}

// Apply returns the items that match every category with active values.
func Apply[T any](items []T, categories []Category[T], values Values) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		ok := true
		for _, c := range categories {
			if !c.Matches(item, values[c.Key]) {
				ok = false
				break
			}
		}
		if ok {
			result = append(result, item)
		}
	}
	return result
}

// ValuesFromQuery collects values for known categories from URL query
// parameters. Repeated parameters and comma separated lists are both accepted.
func ValuesFromQuery[T any](q url.Values, categories []Category[T]) Values {
	values := Values{}
	for _, c := range categories {
		for _, raw := range q[c.Key] {
			for _, v := range strings.Split(raw, ",") {
				if v = strings.TrimSpace(v); v != "" {
					values[c.Key] = append(values[c.Key], v)
				}
			}
		}
	}
	return values
}

// CategoryView is the JSON description of a category for the toolbar.
type CategoryView struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Type        Type     `json:"type"`
	Placeholder string   `json:"placeholderText,omitempty"`
	Options     []Option `json:"selectOptions,omitempty"`
}

// Toolbar describes categories for rendering, in order.
func Toolbar[T any](categories []Category[T]) []CategoryView {
	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, CategoryView{
			Key:         c.Key,
			Title:       c.Title,
			Type:        c.Type,
			Placeholder: c.Placeholder,
			Options:     c.Options,
		})
	}
	return views
}
