package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// MaxImageBytes caps the size of an image loaded from disk or the network.
const MaxImageBytes = 10 << 20

var (
	errImageTooLarge    = errors.New("image exceeds size limit")
	errUnsupportedImage = errors.New("unsupported image content type")
)

// imageHTTPClient is used for https image references. Tests replace it.
var imageHTTPClient = http.DefaultClient

// imageData is an image reference resolved to bytes.
type imageData struct {
	Data     []byte
	MIMEType string
}

func (img imageData) dataURI() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func (img imageData) base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

func isRemoteImage(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// isHTTPSImage reports whether ref may be handed to a backend by URL. Plain
// http refs go through loadImage, which rejects them.
func isHTTPSImage(ref string) bool {
	return strings.HasPrefix(ref, "https://")
}

// loadImage resolves ref, which may be a data URI, an https URL or a local
// file path. Load failures are reported as backend invocation errors of the
// request that carried the reference.
func loadImage(ctx context.Context, ref string) (imageData, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return imageData{}, fmt.Errorf("%w: empty image reference", ErrBackendInvocation)
	}

	var (
		img imageData
		err error
	)
	switch {
	case strings.HasPrefix(ref, "data:"):
		img, err = decodeDataURI(ref)
	case isRemoteImage(ref):
		img, err = fetchImage(ctx, ref)
	default:
		img, err = readImageFile(ref)
	}
	if err != nil {
		return imageData{}, fmt.Errorf("%w: load image %q: %w", ErrBackendInvocation, shortRef(ref), err)
	}
	return img, nil
}

func decodeDataURI(ref string) (imageData, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return imageData{}, fmt.Errorf("malformed data URI")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return imageData{}, fmt.Errorf("data URI must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return imageData{}, fmt.Errorf("decode data URI: %w", err)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return checkImage(data, mime)
}

func fetchImage(ctx context.Context, rawURL string) (imageData, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return imageData{}, fmt.Errorf("parse URL: %w", err)
	}
	if u.Scheme != "https" {
		return imageData{}, fmt.Errorf("only https image URLs are allowed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return imageData{}, fmt.Errorf("new request: %w", err)
	}
	resp, err := imageHTTPClient.Do(req)
	if err != nil {
		return imageData{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return imageData{}, fmt.Errorf("fetch: status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return imageData{}, fmt.Errorf("read body: %w", err)
	}
	if len(data) > MaxImageBytes {
		return imageData{}, errImageTooLarge
	}

	mime := resp.Header.Get("Content-Type")
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return checkImage(data, mime)
}

func readImageFile(path string) (imageData, error) {
	info, err := os.Stat(path)
	if err != nil {
		return imageData{}, err
	}
	if info.Size() > MaxImageBytes {
		return imageData{}, errImageTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return imageData{}, err
	}
	return checkImage(data, http.DetectContentType(data))
}

func checkImage(data []byte, mime string) (imageData, error) {
	if len(data) == 0 {
		return imageData{}, fmt.Errorf("empty image")
	}
	if !strings.HasPrefix(mime, "image/") {
		return imageData{}, fmt.Errorf("%w: %s", errUnsupportedImage, mime)
	}
	return imageData{Data: data, MIMEType: mime}, nil
}

// shortRef keeps data URIs out of error messages.
func shortRef(ref string) string {
	if strings.HasPrefix(ref, "data:") && len(ref) > 32 {
		return ref[:32] + "..."
	}
	return ref
}
