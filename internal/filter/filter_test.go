package filter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type vm struct {
	name  string
	power string
}

var categories = []Category[vm]{
	{Key: "name", Title: "Name", Type: TypeSearch, Placeholder: "Filter by name...", Value: func(v vm) string { return v.name }},
	{Key: "power", Title: "Power state", Type: TypeSelect, Options: []Option{{Key: "on", Value: "poweredOn"}}, Value: func(v vm) string { return v.power }},
}

var vms = []vm{
	{"web-01", "poweredOn"},
	{"web-02", "poweredOff"},
	{"db-01", "poweredOn"},
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		values Values
		expect []string
	}{
		{"no values", Values{}, []string{"web-01", "web-02", "db-01"}},
		{"search is case-insensitive", Values{"name": {"WEB"}}, []string{"web-01", "web-02"}},
		{"values within a category are ORed", Values{"name": {"db", "02"}}, []string{"web-02", "db-01"}},
		{"categories are ANDed", Values{"name": {"web"}, "power": {"poweredOn"}}, []string{"web-01"}},
		{"select is exact", Values{"power": {"powered"}}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := []string{}
			for _, v := range Apply(vms, categories, tc.values) {
				got = append(got, v.name)
			}
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestValuesFromQuery(t *testing.T) {
	q := url.Values{"name": {"web, db"}, "power": {"poweredOn"}, "unknown": {"x"}}
	got := ValuesFromQuery(q, categories)
	assert.Equal(t, Values{"name": {"web", "db"}, "power": {"poweredOn"}}, got)
}

func TestToolbar(t *testing.T) {
	views := Toolbar(categories)
	assert.Len(t, views, 2)
	assert.Equal(t, "name", views[0].Key)
	assert.Equal(t, TypeSelect, views[1].Type)
	assert.Len(t, views[1].Options, 1)
}
