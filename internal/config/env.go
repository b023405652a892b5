package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// envPrefix is prepended to every env tag unless the tag carries ",raw".
const envPrefix = "RECORDS_"

// envLookup matches os.LookupEnv so tests can supply their own environment.
type envLookup func(key string) (string, bool)

// envName turns an env tag into the variable name it reads.
func envName(tag string) string {
	name, opt, _ := strings.Cut(tag, ",")
	if opt == "raw" {
		return name
	}
	return envPrefix + name
}

// applyEnv walks v and overrides every field that has an env tag and a set
// variable. Nested structs are walked too. All bad values are reported
// together, each prefixed with its variable name.
func applyEnv(v reflect.Value, lookup envLookup) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var errs []error
	typ := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			errs = append(errs, applyEnv(field, lookup))
			continue
		}

		tag := typ.Field(i).Tag.Get("env")
		if tag == "" {
			continue
		}
		name := envName(tag)
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		if err := setFieldFromEnv(field, strings.TrimSpace(raw)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// setFieldFromEnv parses value into field. Only the kinds Config uses are supported.
func setFieldFromEnv(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		field.SetInt(int64(n))

	case reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid byte count %q", value)
		}
		field.SetUint(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
