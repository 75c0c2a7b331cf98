package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/mitchellh/mapstructure"
)

// LayoutKey is the system setting holding the homepage layout.
const LayoutKey = "layout_config"

// SectionCollectionProducts renders a product grid fed by a collection query.
const SectionCollectionProducts = "collectionProducts"

// LayoutConfig is the storefront homepage. Fields the backend does not know
// about are kept in Extra and written back untouched.
type LayoutConfig struct {
	Sections []Section      `mapstructure:"sections"`
	Extra    map[string]any `mapstructure:",remain"`
}

// Section is one homepage block.
type Section struct {
	ID               string              `mapstructure:"id"`
	Type             string              `mapstructure:"type"`
	Enabled          bool                `mapstructure:"enabled"`
	SortOrder        int                 `mapstructure:"sortOrder"`
	Title            types.LocalizedText `mapstructure:"title"`
	Subtitle         types.LocalizedText `mapstructure:"subtitle"`
	CollectionSource *CollectionSource   `mapstructure:"collectionSource"`
	CollectionPath   string              `mapstructure:"collectionPath"`
	Extra            map[string]any      `mapstructure:",remain"`
}

var localizedTextType = reflect.TypeOf(types.LocalizedText{})

// localizedTextHook lets plain strings stand in for translations.
func localizedTextHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != localizedTextType || from.Kind() != reflect.String {
			return data, nil
		}
		s := strings.TrimSpace(reflect.ValueOf(data).String())
		if s == "" {
			return types.LocalizedText{}, nil
		}
		return types.NewLocalizedText(s), nil
	}
}

func decodeInto(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       localizedTextHook(),
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// ParseLayout decodes a stored or submitted layout and upgrades legacy
// sections that only carry a collectionPath.
func ParseLayout(raw []byte) (*LayoutConfig, error) {
	cfg := &LayoutConfig{Sections: []Section{}}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return cfg, nil
	}
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("layout must be a JSON object: %w", err)
	}

	var rawSections []any
	if v, ok := doc["sections"]; ok && v != nil {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("sections must be an array")
		}
		rawSections = list
	}
	delete(doc, "sections")
	if err := decodeInto(doc, cfg); err != nil {
		return nil, err
	}
	cfg.Sections = make([]Section, 0, len(rawSections))
	for i, rs := range rawSections {
		fields, ok := rs.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sections[%d] must be an object", i)
		}
		section := Section{Enabled: true}
		if err := decodeInto(fields, &section); err != nil {
			return nil, fmt.Errorf("sections[%d]: %w", i, err)
		}
		section.upgrade()
		cfg.Sections = append(cfg.Sections, section)
	}
	return cfg, nil
}

func (s *Section) upgrade() {
	if s.CollectionSource == nil && strings.TrimSpace(s.CollectionPath) != "" {
		s.CollectionSource = &CollectionSource{Type: SourceRaw, Query: strings.TrimSpace(s.CollectionPath)}
		s.CollectionPath = ""
	}
}

// Validate checks what the storefront relies on.
func (c *LayoutConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Sections))
	for i, s := range c.Sections {
		if strings.TrimSpace(s.ID) == "" {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "sections[%d].id is required", i)
		}
		if _, dup := seen[s.ID]; dup {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "section id %q is used twice", s.ID)
		}
		seen[s.ID] = struct{}{}
		if strings.TrimSpace(s.Type) == "" {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "sections[%d].type is required", i)
		}
		if s.CollectionSource != nil && !s.CollectionSource.Type.IsValid() {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "sections[%d].collectionSource.type %q is not supported", i, s.CollectionSource.Type)
		}
	}
	return nil
}

func (s Section) fields() map[string]any {
	out := make(map[string]any, len(s.Extra)+8)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["id"] = s.ID
	out["type"] = s.Type
	out["enabled"] = s.Enabled
	out["sortOrder"] = s.SortOrder
	if !s.Title.IsZero() {
		out["title"] = s.Title
	}
	if !s.Subtitle.IsZero() {
		out["subtitle"] = s.Subtitle
	}
	if s.CollectionSource != nil {
		out["collectionSource"] = s.CollectionSource
	}
	if s.CollectionPath != "" {
		out["collectionPath"] = s.CollectionPath
	}
	return out
}

// MarshalJSON flattens known and unknown fields back into one object.
func (s Section) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.fields())
}

// MarshalJSON writes the sections next to the preserved top-level fields.
func (c LayoutConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+1)
	for k, v := range c.Extra {
		out[k] = v
	}
	sections := c.Sections
	if sections == nil {
		sections = []Section{}
	}
	out["sections"] = sections
	return json.Marshal(out)
}

// UnmarshalJSON lets request bodies decode straight into a LayoutConfig.
func (c *LayoutConfig) UnmarshalJSON(data []byte) error {
	parsed, err := ParseLayout(data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// StorefrontLayout is the public, localized view of the homepage.
type StorefrontLayout struct {
	Locale   string           `json:"locale"`
	Sections []map[string]any `json:"sections"`
}

// Storefront drops disabled sections, orders the rest by sortOrder (stable
// for ties) and resolves titles and collection queries for locale.
func (c *LayoutConfig) Storefront(locale string) *StorefrontLayout {
	visible := make([]Section, 0, len(c.Sections))
	for _, s := range c.Sections {
		if s.Enabled {
			visible = append(visible, s)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].SortOrder < visible[j].SortOrder
	})

	out := &StorefrontLayout{Locale: locale, Sections: make([]map[string]any, 0, len(visible))}
	for _, s := range visible {
		fields := s.fields()
		delete(fields, "enabled")
		if !s.Title.IsZero() {
			fields["title"] = s.Title.Get(locale)
		}
		if !s.Subtitle.IsZero() {
			fields["subtitle"] = s.Subtitle.Get(locale)
		}
		if s.Type == SectionCollectionProducts {
			fields["resolvedQuery"] = ResolveCollectionQuery(s.CollectionSource)
		}
		out.Sections = append(out.Sections, fields)
	}
	return out
}
