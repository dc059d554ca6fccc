// Package fetcher downloads external roster files (state license rosters,
// registry extracts) over HTTP and FTP and parses spreadsheet payloads.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote roster file.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// must close the returned reader.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ForURL returns the fetcher matching the URL scheme.
func ForURL(rawURL string, http *HTTPFetcher, ftp *FTPFetcher) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return http, nil
	case "ftp":
		return ftp, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
