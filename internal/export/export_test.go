package export

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveImage(t *testing.T) {
	sink, err := NewSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewSink() unexpected error: %v", err)
	}

	path, err := sink.SaveImage("Weekend Trip Planning.png", []byte("img"))
	if err != nil {
		t.Fatalf("SaveImage() unexpected error: %v", err)
	}
	if filepath.Base(path) != "Weekend-Trip-Planning.png" {
		t.Errorf("sanitized name = %q, want %q", filepath.Base(path), "Weekend-Trip-Planning.png")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading exported file: %v", err)
	}
	if string(data) != "img" {
		t.Errorf("file content = %q, want %q", data, "img")
	}
}

func TestSaveImageDoesNotOverwrite(t *testing.T) {
	sink, err := NewSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewSink() unexpected error: %v", err)
	}

	first, err := sink.SaveImage("topic.png", []byte("one"))
	if err != nil {
		t.Fatalf("SaveImage() unexpected error: %v", err)
	}
	second, err := sink.SaveImage("topic.png", []byte("two"))
	if err != nil {
		t.Fatalf("SaveImage() unexpected error: %v", err)
	}

	if first == second {
		t.Fatalf("second export reused path %q", first)
	}
	data, _ := os.ReadFile(first)
	if string(data) != "one" {
		t.Errorf("first export was overwritten, content = %q", data)
	}
}

func TestSaveImageDefaults(t *testing.T) {
	sink, err := NewSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewSink() unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty name", input: "", want: "topic.png"},
		{name: "no extension", input: "chat", want: "chat.png"},
		{name: "path traversal stripped", input: "../../etc/passwd", want: "passwd.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := sink.SaveImage(tt.input, []byte("x"))
			if err != nil {
				t.Fatalf("SaveImage() unexpected error: %v", err)
			}
			if filepath.Base(path) != tt.want {
				t.Errorf("SaveImage(%q) base = %q, want %q", tt.input, filepath.Base(path), tt.want)
			}
		})
	}
}
