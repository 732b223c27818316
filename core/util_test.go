package core

import (
	"testing"

	"github.com/kat-co/vala"
	"github.com/stretchr/testify/assert"
)

type valueMailer struct{}

func (valueMailer) SendMessages(...*EmailMessage) {}

func TestIsSet(t *testing.T) {
	var (
		nilPtr    *Config
		nilMailer EmailService
	)
	tests := []struct {
		name     string
		obtained interface{}
		wantOK   bool
	}{
		{name: "nil", obtained: nil},
		{name: "nil interface", obtained: nilMailer},
		{name: "typed nil pointer", obtained: nilPtr},
		{name: "nil map", obtained: map[string]int(nil)},
		{name: "pointer", obtained: &Config{}, wantOK: true},
		{name: "struct value", obtained: valueMailer{}, wantOK: true},
		{name: "int", obtained: 0, wantOK: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, msg := IsSet(tc.obtained, "dep")()
			assert.Equal(t, tc.wantOK, ok)
			if !ok {
				assert.Contains(t, msg, "dep")
			}
		})
	}

	assert.NotPanics(t, func() {
		vala.BeginValidation().Validate(IsSet(valueMailer{}, "mailSvc")).CheckAndPanic()
	})
	assert.Panics(t, func() {
		vala.BeginValidation().Validate(IsSet(nilMailer, "mailSvc")).CheckAndPanic()
	})
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: " 42 ", want: 42},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCount(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
