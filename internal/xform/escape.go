package xform

import "strings"

var escaper = strings.NewReplacer("&", " and ", "'", "&apos;")

// Escape prepares a raw survey value for an OSM tag.
func Escape(value string) string {
	return escaper.Replace(value)
}
