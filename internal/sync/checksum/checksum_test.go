package checksum

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func TestHash(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "d41d8cd98f00b204e9800998ecf8427e"},
		{"a", "0cc175b9c0f1b6a831c399e269772661"},
		{"The quick brown fox jumps over the lazy dog", "9e107d9d372bb6826bd81d3542a419d6"},
	}
	for _, tt := range tests {
		got, err := Hash(strings.NewReader(tt.input))
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Hash(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("disk gone") }

func TestHash_ReadError(t *testing.T) {
	if _, err := Hash(failingReader{}); err == nil {
		t.Fatal("expected read error")
	}
}

func TestHashFile(t *testing.T) {
	fs := memfs.New()
	if err := util.WriteFile(fs, "blob", []byte("a"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(fs, "blob")
	if err != nil {
		t.Fatalf("HashFile error = %v", err)
	}
	if got != "0cc175b9c0f1b6a831c399e269772661" {
		t.Errorf("HashFile = %s", got)
	}

	if _, err := HashFile(fs, "missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"abc", "abc", true},
		{"ABC", "abc", true},
		{"abc", "abd", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
