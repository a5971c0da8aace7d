package xform

import (
	"bytes"
	_ "embed"
	"os"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed xforms.yaml
var defaultConfig []byte

// Mapping - правила перевода полей анкеты в OSM теги
type Mapping struct {
	Convert  map[string]Rule
	Ignore   map[string]struct{}
	Private  map[string]struct{}
	Multiple map[string]struct{}
}

// document - верхний уровень xforms.yaml; неизвестные ключи игнорируются
type document struct {
	Convert  yaml.Node `yaml:"convert"`
	Ignore   []string  `yaml:"ignore"`
	Private  []string  `yaml:"private"`
	Multiple []string  `yaml:"multiple"`
}

// Load читает YAML с правилами; пустой путь означает встроенный конфиг
func Load(path string, logger *zap.Logger) (*Mapping, error) {
	data := defaultConfig
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInput, err, "failed to read tag mapping %s", path)
		}
		data = raw
	}

	m, err := Parse(data)
	if err != nil {
		return nil, err
	}

	source := path
	if source == "" {
		source = "embedded"
	}
	logger.Info("Tag mapping loaded",
		zap.String("source", source),
		zap.Int("convert", len(m.Convert)),
		zap.Int("ignore", len(m.Ignore)),
		zap.Int("private", len(m.Private)),
		zap.Int("multiple", len(m.Multiple)),
	)

	return m, nil
}

// Default возвращает встроенные правила
func Default() *Mapping {
	m, err := Parse(defaultConfig)
	if err != nil {
		panic("embedded xforms.yaml is invalid: " + err.Error())
	}
	return m
}

// Parse разбирает YAML документ с правилами
func Parse(data []byte) (*Mapping, error) {
	m := &Mapping{
		Convert:  make(map[string]Rule),
		Ignore:   toSet(nil),
		Private:  toSet(nil),
		Multiple: toSet(nil),
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInput, err, "invalid tag mapping yaml")
	}

	m.Ignore = toSet(doc.Ignore)
	m.Private = toSet(doc.Private)
	m.Multiple = toSet(doc.Multiple)

	if err := m.parseConvert(&doc.Convert); err != nil {
		return nil, err
	}
	return m, nil
}

// parseConvert принимает как список одноключевых словарей, так и словарь
func (m *Mapping) parseConvert(node *yaml.Node) error {
	switch node.Kind {
	case 0:
		return nil
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				return apperrors.Newf(apperrors.ErrInput, "convert entry at line %d is not a mapping", item.Line)
			}
			if err := m.parseConvertPairs(item); err != nil {
				return err
			}
		}
		return nil
	case yaml.MappingNode:
		return m.parseConvertPairs(node)
	default:
		return apperrors.Newf(apperrors.ErrInput, "convert at line %d must be a list or a mapping", node.Line)
	}
}

func (m *Mapping) parseConvertPairs(node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		field := strings.ToLower(node.Content[i].Value)
		rule, err := parseRule(node.Content[i+1])
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInput, err, "convert entry %q", field)
		}
		m.Convert[field] = rule
	}
	return nil
}

func parseRule(node *yaml.Node) (Rule, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return parseScalarRule(node.Value), nil
	case yaml.SequenceNode:
		table := ValueTable{Entries: make(map[string]Entry)}
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.MappingNode:
				if err := addEntries(table, item); err != nil {
					return nil, err
				}
			case yaml.ScalarNode:
				// "in=out" переписывает значение, голая строка оставляет его как есть
				if in, out, ok := strings.Cut(item.Value, "="); ok {
					table.Entries[strings.ToLower(strings.TrimSpace(in))] = TagList{{Value: strings.TrimSpace(out)}}
				} else {
					table.Entries[strings.ToLower(item.Value)] = Identity{}
				}
			default:
				return nil, apperrors.Newf(apperrors.ErrInput, "unsupported value rule at line %d", item.Line)
			}
		}
		return table, nil
	case yaml.MappingNode:
		table := ValueTable{Entries: make(map[string]Entry)}
		if err := addEntries(table, node); err != nil {
			return nil, err
		}
		return table, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInput, "unsupported rule at line %d", node.Line)
	}
}

func addEntries(table ValueTable, node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		value := strings.ToLower(node.Content[i].Value)
		rule := node.Content[i+1]
		if rule.Kind != yaml.ScalarNode {
			return apperrors.Newf(apperrors.ErrInput, "value rule %q at line %d must be a scalar", value, rule.Line)
		}
		if rule.Tag == "!!bool" {
			var b bool
			if err := rule.Decode(&b); err != nil {
				return err
			}
			table.Entries[value] = BoolEntry(b)
			continue
		}
		table.Entries[value] = parseTagList(rule.Value)
	}
	return nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}
	return set
}

func (m *Mapping) IsIgnored(field string) bool {
	_, ok := m.Ignore[strings.ToLower(field)]
	return ok
}

func (m *Mapping) IsPrivate(field string) bool {
	_, ok := m.Private[strings.ToLower(field)]
	return ok
}

func (m *Mapping) IsMultiple(field string) bool {
	_, ok := m.Multiple[strings.ToLower(field)]
	return ok
}

// Rule возвращает правило для поля
func (m *Mapping) Rule(field string) (Rule, bool) {
	r, ok := m.Convert[strings.ToLower(field)]
	return r, ok
}

// ConvertTag возвращает имя тега после переименования
func (m *Mapping) ConvertTag(field string) string {
	rule, ok := m.Rule(field)
	if !ok {
		return field
	}
	switch r := rule.(type) {
	case Rename:
		return r.Name
	case Literal:
		return r.Key
	}
	return field
}

// ConvertValue применяет правила к значению поля и возвращает получившиеся теги
func (m *Mapping) ConvertValue(field, value string) []domain.Pair {
	rule, ok := m.Rule(field)
	if !ok {
		return []domain.Pair{{Key: field, Value: value}}
	}

	switch r := rule.(type) {
	case Rename:
		return []domain.Pair{{Key: r.Name, Value: value}}
	case Literal:
		return []domain.Pair{{Key: r.Key, Value: r.Value}}
	case ValueTable:
		entry, found := r.Entries[strings.ToLower(value)]
		if !found {
			return []domain.Pair{{Key: field, Value: value}}
		}
		switch e := entry.(type) {
		case BoolEntry:
			if e {
				return []domain.Pair{{Key: field, Value: "yes"}}
			}
			return []domain.Pair{{Key: field, Value: "no"}}
		case TagList:
			out := make([]domain.Pair, 0, len(e))
			for _, p := range e {
				if p.Key == "" {
					out = append(out, domain.Pair{Key: field, Value: p.Value})
					continue
				}
				out = append(out, p)
			}
			return out
		}
	}
	return []domain.Pair{{Key: field, Value: value}}
}

// ConvertMultiple раскрывает ответ select_multiple в набор тегов
func (m *Mapping) ConvertMultiple(value string) domain.Tags {
	var tags domain.Tags
	for _, token := range strings.Fields(strings.ToLower(value)) {
		rule, ok := m.Rule(token)
		if !ok {
			tags.Set(token, "yes")
			continue
		}
		switch r := rule.(type) {
		case Literal:
			if prev, exists := tags.Get(r.Key); exists && prev != r.Value {
				tags.Set(r.Key, prev+";"+r.Value)
			} else {
				tags.Set(r.Key, r.Value)
			}
		case Rename:
			tags.Set(r.Name, "yes")
		default:
			tags.Set(token, "yes")
		}
	}
	return tags
}
