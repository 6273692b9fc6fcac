package pagedstore

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// KeyMapper renames a column or field name.
type KeyMapper func(string) string

var (
	SnakeCaseKeys KeyMapper = strcase.ToSnake
	CamelCaseKeys KeyMapper = strcase.ToLowerCamel
)

// KeyMapperByName returns the mapper registered under name ("snake",
// "camel"), or nil for "" and "none".
func KeyMapperByName(name string) (KeyMapper, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, true
	case "snake":
		return SnakeCaseKeys, true
	case "camel":
		return CamelCaseKeys, true
	}

	return nil, false
}

func mapRowKeys(row Row, fn KeyMapper) Row {
	if fn == nil {
		return row
	}

	mapped := make(Row, len(row))
	for k, v := range row {
		mapped[fn(k)] = v
	}

	return mapped
}

func normalizeQuery(query string) string {
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ";")
	return strings.TrimSpace(query)
}
