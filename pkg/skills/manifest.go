package skills

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// Metadata is the typed view of a manifest's frontmatter
type Metadata struct {
	Name         string         `mapstructure:"name"`
	Description  string         `mapstructure:"description"`
	DisplayName  string         `mapstructure:"displayName"`
	AllowedTools []string       `mapstructure:"allowed-tools"`
	AllowedRoles []string       `mapstructure:"allowedRoles"`
	Extra        map[string]any `mapstructure:",remain"`
}

// Manifest is a parsed SKILL.md file
type Manifest struct {
	Metadata    Metadata
	FrontMatter map[string]any // Raw frontmatter as decoded from YAML
	Body        string         // Content after the frontmatter block
}

var (
	stringSliceType = reflect.TypeOf([]string(nil))
	utf8BOM         = []byte("\ufeff")
)

// ParseManifest splits a manifest into frontmatter and body and decodes the
// frontmatter into Metadata. A manifest without frontmatter parses to empty
// metadata and the whole content as body; required fields are checked by
// Validate, not here.
func ParseManifest(content []byte) (*Manifest, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	frontMatter, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "invalid frontmatter")
	}
	if frontMatter == nil {
		frontMatter = map[string]any{}
	}

	metadata, err := decodeMetadata(frontMatter)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		Metadata:    metadata,
		FrontMatter: frontMatter,
		Body:        extractBodyContent(string(content)),
	}, nil
}

// Validate checks the fields a manifest needs to be cached
func (m *Manifest) Validate() error {
	if m.Metadata.Name == "" {
		return ErrMissingName
	}
	if m.Metadata.Description == "" {
		return ErrMissingDescription
	}
	return nil
}

// ResolvedDisplayName returns the explicit displayName or one derived from the name
func (m *Manifest) ResolvedDisplayName() string {
	if m.Metadata.DisplayName != "" {
		return m.Metadata.DisplayName
	}
	return DisplayNameFromID(m.Metadata.Name)
}

func decodeMetadata(frontMatter map[string]any) (Metadata, error) {
	var metadata Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       listNormalizeHook,
		WeaklyTypedInput: true,
		Result:           &metadata,
	})
	if err != nil {
		return Metadata{}, errors.Wrap(err, "failed to create frontmatter decoder")
	}

	if err := decoder.Decode(frontMatter); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to decode frontmatter")
	}

	if metadata.AllowedTools == nil {
		metadata.AllowedTools = []string{}
	}
	if metadata.AllowedRoles == nil {
		metadata.AllowedRoles = []string{}
	}

	return metadata, nil
}

// listNormalizeHook sends every []string field through NormalizeList so that
// list and comma-separated forms decode the same way.
func listNormalizeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != stringSliceType {
		return data, nil
	}
	return NormalizeList(data), nil
}

// NormalizeList converts a frontmatter value into a list of trimmed strings.
// It accepts a sequence, or a single comma-separated string. Empty entries are
// dropped and a nil value yields an empty list.
func NormalizeList(value any) []string {
	result := []string{}

	switch v := value.(type) {
	case nil:
		return result
	case string:
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				result = append(result, item)
			}
		}
	case []string:
		for _, item := range v {
			if item = strings.TrimSpace(item); item != "" {
				result = append(result, item)
			}
		}
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				result = append(result, s)
			}
		}
	default:
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			result = append(result, s)
		}
	}

	return result
}

// DisplayNameFromID derives a display name by splitting on "-" and
// upper-casing the first character of each piece, e.g. "pdf-tools" -> "Pdf Tools".
func DisplayNameFromID(id string) string {
	pieces := strings.Split(id, "-")
	for i, piece := range pieces {
		r, size := utf8.DecodeRuneInString(piece)
		if r == utf8.RuneError {
			continue
		}
		pieces[i] = string(unicode.ToUpper(r)) + piece[size:]
	}
	return strings.Join(pieces, " ")
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}
