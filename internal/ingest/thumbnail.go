package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelpmedia/kelp/internal/extractor"
)

// cacheThumbnail downloads the source thumbnail into the thumbnail cache.
// Returns "" when the source reports no thumbnail. Already-cached files are
// reused.
func (p *Pipeline) cacheThumbnail(ctx context.Context, platform string, md extractor.Metadata) (string, error) {
	if md.ThumbnailURL == "" {
		return "", nil
	}
	if err := os.MkdirAll(p.cfg.ThumbnailDir, 0o755); err != nil {
		return "", err
	}

	ext := "jpg"
	lower := strings.ToLower(md.ThumbnailURL)
	switch {
	case strings.Contains(lower, ".png"):
		ext = "png"
	case strings.Contains(lower, ".webp"):
		ext = "webp"
	}

	cachePath := filepath.Join(p.cfg.ThumbnailDir,
		fmt.Sprintf("%s_%s.%s", platform, md.SourceID, ext))
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, md.ThumbnailURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	// Some CDNs require a same-site referer.
	if md.WebpageURL != "" {
		if parsed, err := url.Parse(md.WebpageURL); err == nil {
			req.Header.Set("Referer", parsed.Scheme+"://"+parsed.Host+"/")
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thumbnail fetch: status %d", resp.StatusCode)
	}

	out, err := os.Create(cachePath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(cachePath)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(cachePath)
		return "", err
	}

	return cachePath, nil
}
