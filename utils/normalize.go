package utils

import (
	"reflect"
	"strings"
)

// NormalizePtrDTO trims *string fields on a pointer-to-struct DTO.
// Only non-nil pointer fields are touched; nils stay nil so GORM won't update them.
func NormalizePtrDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if f.Kind() != reflect.Ptr || f.IsNil() {
			continue
		}
		ef := f.Elem()
		if ef.Kind() == reflect.String && ef.CanSet() {
			ef.SetString(strings.TrimSpace(ef.String()))
		}
	}
}

// NormalizeDTO trims string fields on a pointer-to-struct DTO and lowercases
// fields tagged `normalize:"lower"` (emails). Fields tagged `normalize:"-"`
// (passwords) are left alone. Run it before validation. Request dedup
// fingerprints the raw body before binding, so " Ada@Example.com" and
// "ada@example.com" are distinct requests there.
func NormalizeDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	t := s.Type()
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if f.Kind() != reflect.String || !f.CanSet() {
			continue
		}
		tag := t.Field(i).Tag.Get("normalize")
		if tag == "-" {
			continue
		}
		val := strings.TrimSpace(f.String())
		if tag == "lower" {
			val = strings.ToLower(val)
		}
		f.SetString(val)
	}
}
