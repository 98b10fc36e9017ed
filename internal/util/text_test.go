package util

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "safe name untouched", input: "invoice_12.pdf", want: "invoice_12.pdf"},
		{name: "slashes and hash", input: "GRN#2024/01.pdf", want: "GRN_2024_01.pdf"},
		{name: "windows reserved chars", input: `a<b>c:d"e|f?g*.pdf`, want: "a_b_c_d_e_f_g_.pdf"},
		{name: "backslash", input: `dir\file.pdf`, want: "dir_file.pdf"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeFilename(tc.input)
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestSanitizeFilenameCapsLengthKeepingExtension(t *testing.T) {
	long := strings.Repeat("a", 150) + ".pdf"
	got := SanitizeFilename(long)
	if len(got) > 100 {
		t.Fatalf("length %d exceeds cap", len(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("extension lost: %q", got)
	}

	noExt := strings.Repeat("b", 150)
	if got := SanitizeFilename(noExt); len(got) != 100 {
		t.Fatalf("no-extension cap: len=%d", len(got))
	}
}

func TestCleanValue(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "trimmed string", input: "  Acme  ", want: "Acme"},
		{name: "whole float", input: float64(5), want: "5"},
		{name: "fractional float", input: 12.75, want: "12.75"},
		{name: "json number", input: json.Number("5"), want: "5"},
		{name: "int", input: 42, want: "42"},
		{name: "bool", input: true, want: "true"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanValue(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
