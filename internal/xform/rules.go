package xform

import (
	"strings"

	"github.com/fieldmap-service/internal/domain"
)

// Rule - правило конвертации поля, выбирается один раз при загрузке YAML
type Rule interface {
	isRule()
}

// Rename переименовывает поле, значение остаётся как есть
type Rename struct {
	Name string
}

// Literal заменяет поле и значение на фиксированный тег key=value
type Literal struct {
	Key   string
	Value string
}

// ValueTable сопоставляет входным значениям правила вывода
type ValueTable struct {
	Entries map[string]Entry
}

func (Rename) isRule()     {}
func (Literal) isRule()    {}
func (ValueTable) isRule() {}

// Entry - правило для одного значения в ValueTable
type Entry interface {
	isEntry()
}

// BoolEntry выводит yes/no под исходным именем поля
type BoolEntry bool

// TagList выводит набор тегов; пара с пустым ключом задаёт новое значение исходного поля
type TagList []domain.Pair

// Identity оставляет значение без изменений
type Identity struct{}

func (BoolEntry) isEntry() {}
func (TagList) isEntry()   {}
func (Identity) isEntry()  {}

// parseScalarRule выбирает Rename или Literal по наличию "="
func parseScalarRule(s string) Rule {
	s = strings.TrimSpace(s)
	if k, v, ok := strings.Cut(s, "="); ok {
		return Literal{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)}
	}
	return Rename{Name: s}
}

// parseTagList разбирает "k=v,k2=v2"
func parseTagList(s string) TagList {
	items := strings.Split(s, ",")
	out := make(TagList, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if k, v, ok := strings.Cut(item, "="); ok {
			out = append(out, domain.Pair{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
			continue
		}
		out = append(out, domain.Pair{Value: item})
	}
	return out
}
