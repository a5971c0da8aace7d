package domain

import "strings"

// Field types from the XLSForm "type" column
const (
	FieldTypeSelectOne      = "select_one"
	FieldTypeSelectMultiple = "select_multiple"
	FieldTypeGeopoint       = "geopoint"
	FieldTypeGeotrace       = "geotrace"
	FieldTypeText           = "text"
	FieldTypeCalculate      = "calculate"
)

// FormSchema - типы полей формы, значения по умолчанию и "last-saved" поля
type FormSchema struct {
	Types    map[string]string
	Defaults map[string]string
	Sticky   map[string]struct{}
}

func NewFormSchema() *FormSchema {
	return &FormSchema{
		Types:    make(map[string]string),
		Defaults: make(map[string]string),
		Sticky:   make(map[string]struct{}),
	}
}

// TypeOf возвращает тип поля или пустую строку для нетипизированных полей
func (s *FormSchema) TypeOf(field string) string {
	if s == nil {
		return ""
	}
	return s.Types[strings.ToLower(field)]
}

func (s *FormSchema) IsSelectMultiple(field string) bool {
	return s.TypeOf(field) == FieldTypeSelectMultiple
}

func (s *FormSchema) IsSticky(field string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Sticky[strings.ToLower(field)]
	return ok
}

func (s *FormSchema) Default(field string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.Defaults[strings.ToLower(field)]
	return v, ok
}

// Empty сообщает, что схема не содержит ни одного поля
func (s *FormSchema) Empty() bool {
	return s == nil || len(s.Types) == 0
}
