package settings

import (
	"net/url"
	"strconv"
	"strings"
)

// SourceType selects how a collection section picks its products.
type SourceType string

const (
	SourceCategory SourceType = "category"
	SourceKeyword  SourceType = "keyword"
	SourceTag      SourceType = "tag"
	SourceManual   SourceType = "manual"
	SourceRaw      SourceType = "raw"
)

// IsValid reports whether t is a known source type.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceCategory, SourceKeyword, SourceTag, SourceManual, SourceRaw:
		return true
	}
	return false
}

// CollectionSource describes the product query behind a collection section.
type CollectionSource struct {
	Type       SourceType `mapstructure:"type" json:"type"`
	CategoryID string     `mapstructure:"categoryId" json:"categoryId,omitempty"`
	Keyword    string     `mapstructure:"keyword" json:"keyword,omitempty"`
	Tag        string     `mapstructure:"tag" json:"tag,omitempty"`
	ProductIDs []string   `mapstructure:"productIds" json:"productIds,omitempty"`
	Query      string     `mapstructure:"query" json:"query,omitempty"`
	MaxItems   int        `mapstructure:"maxItems" json:"maxItems,omitempty"`
	Sort       string     `mapstructure:"sort" json:"sort,omitempty"`
}

// ResolveCollectionQuery turns a source into the query string the product
// listing endpoint understands. It returns "" when the source is unusable.
func ResolveCollectionQuery(src *CollectionSource) string {
	if src == nil {
		return ""
	}
	var parts []string
	switch src.Type {
	case SourceCategory:
		if v := strings.TrimSpace(src.CategoryID); v != "" {
			parts = append(parts, "categoryId="+url.QueryEscape(v))
		}
	case SourceKeyword:
		if v := strings.TrimSpace(src.Keyword); v != "" {
			parts = append(parts, "search="+url.QueryEscape(v))
		}
	case SourceTag:
		if v := strings.TrimSpace(src.Tag); v != "" {
			parts = append(parts, "tag="+url.QueryEscape(v))
		}
	case SourceManual:
		ids := make([]string, 0, len(src.ProductIDs))
		for _, id := range src.ProductIDs {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, url.QueryEscape(id))
			}
		}
		if len(ids) > 0 {
			parts = append(parts, "ids="+strings.Join(ids, ","))
		}
	case SourceRaw:
		if v := strings.TrimPrefix(strings.TrimSpace(src.Query), "?"); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if src.MaxItems > 0 {
		parts = append(parts, "limit="+strconv.Itoa(src.MaxItems))
	}
	if v := strings.TrimSpace(src.Sort); v != "" {
		parts = append(parts, "sort="+url.QueryEscape(v))
	}
	return strings.Join(parts, "&")
}
