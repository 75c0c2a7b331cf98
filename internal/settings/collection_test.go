package settings

import "testing"

func TestResolveCollectionQuery(t *testing.T) {
	cases := []struct {
		name string
		src  *CollectionSource
		want string
	}{
		{"nil", nil, ""},
		{"category", &CollectionSource{Type: SourceCategory, CategoryID: "c-1", MaxItems: 8}, "categoryId=c-1&limit=8"},
		{"keyword escaped", &CollectionSource{Type: SourceKeyword, Keyword: "t shirt&co", Sort: "price_asc"}, "search=t+shirt%26co&sort=price_asc"},
		{"tag", &CollectionSource{Type: SourceTag, Tag: "summer"}, "tag=summer"},
		{"manual", &CollectionSource{Type: SourceManual, ProductIDs: []string{"a", " ", "b"}}, "ids=a,b"},
		{"raw strips question mark", &CollectionSource{Type: SourceRaw, Query: "?tag=new&sort=newest"}, "tag=new&sort=newest"},
		{"missing value", &CollectionSource{Type: SourceCategory, MaxItems: 4}, ""},
		{"unknown type", &CollectionSource{Type: "brand", Query: "x"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveCollectionQuery(tc.src); got != tc.want {
				t.Fatalf("ResolveCollectionQuery = %q, want %q", got, tc.want)
			}
		})
	}
}
