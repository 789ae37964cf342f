package classify

import (
	"strings"
	"testing"
)

func TestClassifyBinaryList(t *testing.T) {
	for _, ext := range BinaryExtensions() {
		res := Classify("/files/sample." + ext)
		if !res.IsBinary {
			t.Fatalf("expected %s to be binary", ext)
		}
		upper := Classify("/files/SAMPLE." + strings.ToUpper(ext))
		if !upper.IsBinary || upper.Extension != ext {
			t.Fatalf("expected upper-case %s to classify as binary, got %+v", ext, upper)
		}
	}
}

func TestClassifyDefaultsToText(t *testing.T) {
	cases := []struct {
		path string
		ext  string
	}{
		{"main.go", "go"},
		{"README.md", "md"},
		{"config.unknownext", "unknownext"},
		{"Makefile", ""},
		{"", ""},
		{"archive.zip", "zip"},
		{"drawing.svg", "svg"},
	}
	for _, tc := range cases {
		res := Classify(tc.path)
		if res.IsBinary {
			t.Fatalf("expected %q to be text", tc.path)
		}
		if res.Extension != tc.ext {
			t.Fatalf("Classify(%q).Extension = %q, want %q", tc.path, res.Extension, tc.ext)
		}
	}
}

func TestBinaryExtensionsIsACopy(t *testing.T) {
	list := BinaryExtensions()
	if len(list) != 20 {
		t.Fatalf("expected 20 binary extensions, got %d", len(list))
	}
	list[0] = "txt"
	if IsBinaryExtension("txt") {
		t.Fatalf("mutating the returned slice must not change the list")
	}
}
