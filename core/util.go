package core

import (
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
)

var ErrNotANumber = errors.New("must be a whole number")

// IsSet is vala.IsNotNil for dependencies that may be implemented by value types.
// Structs and other non-nilable kinds are always set.
func IsSet(obtained interface{}, paramName string) vala.Checker {
	if obtained != nil {
		switch reflect.ValueOf(obtained).Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		default:
			return func() (bool, string) { return true, "" }
		}
	}
	return vala.IsNotNil(obtained, paramName)
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ParseCount parses a whole number typed into a form field.
// "0" is a valid value; blank or non-numeric input is an error, never a silent zero.
func ParseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrNotANumber
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrNotANumber
	}
	return n, nil
}

// ParseBool accepts the usual checkbox spellings.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off", "":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean %q", s)
}

// SplitList splits a comma separated form value, dropping blanks.
func SplitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests,
// so walk up until the module root is found; fall back to the working directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
