// Package media provides image optimization for wardrobe photos: query-hint
// rewriting for recognized CDNs and a local resize/webp pipeline for
// on-device files.
package media

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
)

// Optimizer rewrites or re-encodes wardrobe photo URIs into cheaper-to-load
// equivalents.
type Optimizer struct {
	basePath string
	maxWidth int
	quality  float32
	logger   *logging.ChanneledLogger
}

// NewOptimizer creates an optimizer writing local output under basePath.
func NewOptimizer(basePath string, maxWidth int, quality float32, logger *logging.ChanneledLogger) *Optimizer {
	return &Optimizer{
		basePath: basePath,
		maxWidth: maxWidth,
		quality:  quality,
		logger:   logger,
	}
}

// Optimize returns an optimized form of uri. Remote URLs on recognized CDNs
// get resize/format query hints; local files are resized and re-encoded to
// webp. Anything else passes through unchanged.
func (o *Optimizer) Optimize(uri string) (string, error) {
	if isLocalPath(uri) {
		return o.optimizeLocal(strings.TrimPrefix(uri, "file://"))
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return uri, nil
	}

	if hints, ok := cdnHints(parsed.Host, o.maxWidth); ok {
		query := parsed.Query()
		for key, value := range hints {
			query.Set(key, value)
		}
		parsed.RawQuery = query.Encode()
		if o.logger != nil {
			o.logger.Media().Debug("CDN hints applied", "host", parsed.Host)
		}
		return parsed.String(), nil
	}

	return uri, nil
}

// cdnHints returns the resize/format query parameters for a recognized image
// CDN host.
func cdnHints(host string, width int) (map[string]string, bool) {
	w := strconv.Itoa(width)
	switch {
	case strings.HasSuffix(host, "cloudinary.com"):
		return map[string]string{"w": w, "f": "auto", "q": "auto"}, true
	case strings.HasSuffix(host, "imgix.net"):
		return map[string]string{"w": w, "auto": "format", "q": "80"}, true
	case host == "images.unsplash.com":
		return map[string]string{"w": w, "fm": "webp", "q": "80"}, true
	}
	return nil, false
}

func (o *Optimizer) optimizeLocal(path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", path, err)
	}

	if img.Bounds().Dx() > o.maxWidth {
		img = imaging.Resize(img, o.maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(o.basePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".webp"
	outPath := filepath.Join(o.basePath, name)

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create optimized image: %w", err)
	}
	defer out.Close()

	if err := webp.Encode(out, img, &webp.Options{Quality: o.quality}); err != nil {
		return "", fmt.Errorf("failed to encode webp: %w", err)
	}

	if o.logger != nil {
		o.logger.Media().Debug("Local image optimized", "source", path, "output", outPath)
	}
	return outPath, nil
}

func isLocalPath(uri string) bool {
	if strings.HasPrefix(uri, "file://") {
		return true
	}
	return !strings.Contains(uri, "://")
}
