package conflation

import (
	"fmt"
	"strings"

	"github.com/fieldmap-service/internal/domain"
)

// MergePolicy решает, какое значение оставить для ключа, который есть и в новом, и в эталонном объекте
type MergePolicy string

const (
	// PolicyLowest keeps min(lower(new), lower(existing)).
	PolicyLowest   MergePolicy = "lowest"
	PolicyNew      MergePolicy = "new"
	PolicyExisting MergePolicy = "existing"
)

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch p := MergePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyLowest, nil
	case PolicyLowest, PolicyNew, PolicyExisting:
		return p, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q", s)
	}
}

// Merge объединяет теги: порядок нового объекта, затем ключи, которые есть только в эталоне
func (p MergePolicy) Merge(current, reference domain.Tags) domain.Tags {
	merged := make(domain.Tags, 0, len(current)+len(reference))
	for _, t := range current {
		existing, ok := reference.Get(t.Key)
		if !ok {
			merged.Set(t.Key, t.Value)
			continue
		}
		merged.Set(t.Key, p.resolve(t.Value, existing))
	}
	for _, t := range reference {
		if !merged.Has(t.Key) {
			merged.Set(t.Key, t.Value)
		}
	}
	return merged
}

func (p MergePolicy) resolve(current, existing string) string {
	switch p {
	case PolicyNew:
		return current
	case PolicyExisting:
		return existing
	default:
		a, b := strings.ToLower(current), strings.ToLower(existing)
		if a < b {
			return a
		}
		return b
	}
}
