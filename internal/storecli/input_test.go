package storecli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestGetSimpleText(t *testing.T) {
	t.Parallel()

	reader := bufio.NewReader(strings.NewReader("  user@example.com  \n"))
	var out bytes.Buffer

	got, err := GetSimpleText(reader, "Email", &out)
	if err != nil {
		t.Fatalf("GetSimpleText error: %v", err)
	}
	if got != "user@example.com" {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(out.String(), "Email") {
		t.Fatalf("prompt not written: %q", out.String())
	}
}

func TestGetSimpleText_EOFAfterPartialLine(t *testing.T) {
	t.Parallel()

	reader := bufio.NewReader(strings.NewReader("partial"))
	var out bytes.Buffer

	got, err := GetSimpleText(reader, "Email", &out)
	if err != nil {
		t.Fatalf("GetSimpleText error: %v", err)
	}
	if got != "partial" {
		t.Fatalf("got %q", got)
	}
}

func TestGetSimpleText_EOFWithoutInput(t *testing.T) {
	t.Parallel()

	reader := bufio.NewReader(strings.NewReader(""))
	var out bytes.Buffer

	if _, err := GetSimpleText(reader, "Email", &out); err == nil {
		t.Fatalf("expected error on empty input")
	}
}

func TestGetPassword(t *testing.T) {
	orig := readPassword
	defer func() { readPassword = orig }()

	readPassword = func(fd int) ([]byte, error) {
		return []byte("s3cret"), nil
	}

	var out bytes.Buffer
	pw, err := GetPassword(&out)
	if err != nil {
		t.Fatalf("GetPassword error: %v", err)
	}
	if string(pw) != "s3cret" {
		t.Fatalf("got %q", pw)
	}
	if !strings.Contains(out.String(), "Enter password:") {
		t.Fatalf("prompt not written: %q", out.String())
	}
}
