// Package fetch streams media resources to disk. Destinations are
// never overwritten and, unless pre-confirmed, every transfer asks
// for the resolved path first.
package fetch

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/schollz/progressbar/v3"

	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/web"
)

// Manager performs confirmed, chunked downloads.
type Manager struct {
	Session   *web.Session
	ChunkSize int
	Progress  io.Writer
	// Confirm asks for approval of a resolved destination path. A nil
	// Confirm declines every prompt.
	Confirm func(label string) (bool, error)
}

// DestDir resolves and creates the per-kind folder under root.
func (m *Manager) DestDir(root string, kind content.Kind) (string, error) {
	dir := filepath.Join(root, kind.Folder())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	return dir, nil
}

// AudioFileName derives the destination name from a direct media URL.
func AudioFileName(audioURL string) string {
	if u, err := url.Parse(audioURL); err == nil {
		return path.Base(u.Path)
	}
	return path.Base(audioURL)
}

// VideoFileName derives the destination name from a resolved stream
// title. The resolved title may diverge from the stored row title;
// the file is named after the stream.
func VideoFileName(streamTitle string) string {
	if strings.HasSuffix(streamTitle, ".mp4") {
		return streamTitle
	}
	return streamTitle + ".mp4"
}

// Fetch streams rawURL into dir under fileName. An occupied
// destination aborts with content.FileConflictError before any byte
// moves; a declined confirmation aborts cleanly with no side effects.
// A missing file after a completed stream is reported as
// content.PostconditionError, which callers treat as non-fatal.
func (m *Manager) Fetch(rawURL, referer, dir, fileName string, yes bool) (string, error) {
	filePath := filepath.Join(dir, fileName)
	if _, err := os.Stat(filePath); err == nil {
		return "", &content.FileConflictError{Path: filePath}
	}

	if yes {
		log.Printf("[INFO] downloading file to %s", filePath)
	} else {
		ok, err := m.confirm(fmt.Sprintf("Download file to %s?", filePath))
		if err != nil {
			return "", err
		}
		if !ok {
			log.Printf("[INFO] download cancelled")
			return "", nil
		}
	}

	if err := m.stream(rawURL, referer, filePath, fileName); err != nil {
		return "", err
	}

	if _, err := os.Stat(filePath); err != nil {
		return "", &content.PostconditionError{Path: filePath}
	}
	return filePath, nil
}

func (m *Manager) confirm(label string) (bool, error) {
	if m.Confirm == nil {
		return false, nil
	}
	return m.Confirm(label)
}

// stream copies the resource in fixed-size chunks, syncing each chunk
// so an interruption leaves at most one chunk unwritten.
func (m *Manager) stream(rawURL, referer, filePath, fileName string) error {
	resp, err := m.Session.GetWithReferer(rawURL, referer)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint

	out := m.Progress
	if out == nil {
		out = io.Discard
	}
	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetDescription(fileName),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close() // nolint

	chunk := m.ChunkSize
	if chunk <= 0 {
		chunk = 1024
	}
	buf := make([]byte, chunk)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write chunk: %w", werr)
			}
			_ = f.Sync()
			_ = bar.Add(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return &content.NetworkError{URL: rawURL, Err: err}
		}
	}
	_ = bar.Finish()

	return f.Close()
}
