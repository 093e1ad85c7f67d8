package testutil

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

// tinyPNG is a valid 1x1 transparent PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// PNGBytes returns the bytes of a 1x1 PNG image
func PNGBytes() []byte {
	b, err := base64.StdEncoding.DecodeString(tinyPNG)
	if err != nil {
		panic(err)
	}
	return b
}

// PNGDataURI returns a data URI for the 1x1 PNG image
func PNGDataURI() string {
	return "data:image/png;base64," + tinyPNG
}

// WritePNG writes the 1x1 PNG into t's temp dir and returns its path
func WritePNG(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pixel.png")
	if err := os.WriteFile(path, PNGBytes(), 0644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}

// ThinkingResponses pairs raw backend output with its sanitized form
var ThinkingResponses = []struct {
	Raw  string
	Want string
}{
	{Raw: "<think>plan the answer</think>Paris.", Want: "Paris."},
	{Raw: "A<think>x</think>B<think>y</think>C", Want: "ABC"},
	{Raw: "<think>\nmulti\nline\n</think>\nanswer", Want: "\nanswer"},
	{Raw: "no reasoning here", Want: "no reasoning here"},
}
