package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// ColumnUpdates turns the set (non-nil) pointer fields of a struct DTO into a
// gorm Updates map, so unset fields are never written.
//
// The column name is the `gorm:"column:..."` name when present, otherwise the
// json name. Fields tagged json:"-" are skipped unless they name a column.
func ColumnUpdates(dto any) map[string]any {
	out := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return out
	}
	s := v.Elem()
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		if col := columnName(t.Field(i)); col != "" {
			out[col] = fv.Elem().Interface()
		}
	}
	return out
}

func columnName(sf reflect.StructField) string {
	for _, part := range strings.Split(sf.Tag.Get("gorm"), ";") {
		if name, ok := strings.CutPrefix(strings.TrimSpace(part), "column:"); ok {
			return name
		}
	}
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// ParseIntDefault parses a non-negative int, returning def for anything else.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
