package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 PNG
var pngPixel, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func useImageServer(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewTLSServer(h)
	prev := imageHTTPClient
	imageHTTPClient = srv.Client()
	t.Cleanup(func() {
		imageHTTPClient = prev
		srv.Close()
	})
	return srv.URL
}

func TestLoadImageDataURI(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngPixel)

	img, err := loadImage(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, pngPixel, img.Data)
	assert.Equal(t, ref, img.dataURI())
}

func TestLoadImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixel.png")
	require.NoError(t, os.WriteFile(path, pngPixel, 0644))

	img, err := loadImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngPixel), img.base64())
}

func TestLoadImageHTTPS(t *testing.T) {
	url := useImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write(pngPixel)
	})

	img, err := loadImage(context.Background(), url+"/pixel.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, pngPixel, img.Data)
}

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("just some text"), 0644))

	url := useImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.png":
			http.NotFound(w, r)
		case "/huge.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(bytes.Repeat([]byte{0}, MaxImageBytes+1))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		}
	})

	tests := []struct {
		name string
		ref  string
	}{
		{name: "empty", ref: "   "},
		{name: "missing file", ref: filepath.Join(dir, "nope.png")},
		{name: "not an image", ref: textFile},
		{name: "plain http", ref: "http://example.com/cat.png"},
		{name: "malformed data URI", ref: "data:image/png;base64"},
		{name: "data URI without base64", ref: "data:image/png,abc"},
		{name: "bad base64", ref: "data:image/png;base64,!!!"},
		{name: "not found", ref: url + "/missing.png"},
		{name: "too large", ref: url + "/huge.png"},
		{name: "html page", ref: url + "/page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadImage(context.Background(), tt.ref)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBackendInvocation)
		})
	}
}

func TestShortRef(t *testing.T) {
	long := "data:image/png;base64," + strings.Repeat("A", 100)
	assert.Equal(t, long[:32]+"...", shortRef(long))
	assert.Equal(t, "/tmp/cat.png", shortRef("/tmp/cat.png"))
}

func TestIsRemoteImage(t *testing.T) {
	assert.True(t, isRemoteImage("https://example.com/a.png"))
	assert.True(t, isRemoteImage("http://example.com/a.png"))
	assert.False(t, isRemoteImage("/tmp/a.png"))
	assert.False(t, isRemoteImage("data:image/png;base64,AAAA"))

	assert.True(t, isHTTPSImage("https://example.com/a.png"))
	assert.False(t, isHTTPSImage("http://example.com/a.png"))
	assert.False(t, isHTTPSImage("/tmp/a.png"))
}
