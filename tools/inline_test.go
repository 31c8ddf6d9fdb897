package tools

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInline(t *testing.T) {
	input := `
dynamic:
  codec/bitrate: %inline("bitrate.js")
  codec/load: %inline ("load.js")
`
	want := `
dynamic:
  codec/bitrate: BITRATE.JS
  codec/load: LOAD.JS
`
	find := func(name string) ([]byte, error) {
		return []byte(strings.ToUpper(name)), nil
	}
	got, err := Inline([]byte(input), find)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("got %s", got)
	}

	broken := errors.New("broken")
	if _, err = Inline([]byte(input), func(string) ([]byte, error) { return nil, broken }); err != broken {
		t.Fatalf("expected broken, got %v", err)
	}
}

func TestReadFileWithInlines(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "s.js"), []byte(`"return 1;"`), 0644); err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(filename, []byte(`x: %inline("s.js")`), 0644); err != nil {
		t.Fatal(err)
	}
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != `x: "return 1;"` {
		t.Fatalf("got %s", bs)
	}
}
