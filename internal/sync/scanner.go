package sync

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// imageExtensions is the fixed allow-list of photo file extensions,
// compared case-insensitively on the suffix after the last dot.
var imageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp",
	".bmp", ".heic", ".heif", ".raw", ".cr2", ".nef",
}

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// Scanner enumerates candidate photo files under watch folders.
type Scanner struct {
	extensions []string // lowercase, with dot
	skipHidden bool
	bufferSize int
}

// WithExtensions overrides the file extensions to scan for
func WithExtensions(exts ...string) ScannerOption {
	return func(s *Scanner) {
		normalized := make([]string, len(exts))
		for i, ext := range exts {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			normalized[i] = strings.ToLower(ext)
		}
		s.extensions = normalized
	}
}

// WithSkipHidden configures whether to skip hidden files and directories
func WithSkipHidden(skip bool) ScannerOption {
	return func(s *Scanner) {
		s.skipHidden = skip
	}
}

// WithBufferSize configures the candidate channel buffer size
func WithBufferSize(size int) ScannerOption {
	return func(s *Scanner) {
		s.bufferSize = size
	}
}

// NewScanner creates a Scanner with the given options
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		extensions: imageExtensions,
		skipHidden: true,
		bufferSize: 100,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan enumerates candidate files under the folder and sends them on the
// returned channel in filesystem order. Both channels are closed when the
// scan completes. A non-existent folder path yields no candidates and no
// error; folders can be temporarily unmounted. Per-entry errors go to the
// error channel and the scan continues.
func (s *Scanner) Scan(ctx context.Context, folder *WatchFolder) (<-chan Candidate, <-chan error) {
	candidateCh := make(chan Candidate, s.bufferSize)
	errCh := make(chan error, s.bufferSize)

	go func() {
		defer close(candidateCh)
		defer close(errCh)

		root := filepath.Clean(folder.Path)
		if _, err := os.Stat(root); err != nil {
			return
		}

		if folder.IncludeSubfolders {
			s.walk(ctx, root, candidateCh, errCh)
		} else {
			s.listImmediate(ctx, root, candidateCh, errCh)
		}
	}()

	return candidateCh, errCh
}

// walk performs a depth-unbounded traversal of root.
func (s *Scanner) walk(ctx context.Context, root string, candidateCh chan<- Candidate, errCh chan<- error) {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return &DiscoveryError{Path: path, Err: ErrCancelled}
		default:
		}

		if err != nil {
			// Skip this entry but continue walking. The send must not stall
			// past cancellation: a slow error consumer cannot pin the walk.
			select {
			case errCh <- &DiscoveryError{Path: path, Err: err}:
			case <-ctx.Done():
				return &DiscoveryError{Path: path, Err: ErrCancelled}
			}
			return nil
		}

		if s.skipHidden && isHidden(entry.Name()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			return nil
		}

		if !s.matchesExtension(path) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			select {
			case errCh <- &DiscoveryError{Path: path, Err: err}:
			case <-ctx.Done():
				return &DiscoveryError{Path: path, Err: ErrCancelled}
			}
			return nil
		}

		select {
		case candidateCh <- newCandidate(path, info):
		case <-ctx.Done():
			return &DiscoveryError{Path: path, Err: ErrCancelled}
		}

		return nil
	})

	if err != nil {
		if _, ok := err.(*DiscoveryError); !ok {
			err = &DiscoveryError{Path: root, Err: err}
		}
		select {
		case errCh <- err:
		case <-ctx.Done():
		}
	}
}

// listImmediate enumerates the immediate children of root only.
func (s *Scanner) listImmediate(ctx context.Context, root string, candidateCh chan<- Candidate, errCh chan<- error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		select {
		case errCh <- &DiscoveryError{Path: root, Err: err}:
		case <-ctx.Done():
		}
		return
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if entry.IsDir() {
			continue
		}
		if s.skipHidden && isHidden(entry.Name()) {
			continue
		}

		path := filepath.Join(root, entry.Name())
		if !s.matchesExtension(path) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			select {
			case errCh <- &DiscoveryError{Path: path, Err: err}:
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case candidateCh <- newCandidate(path, info):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scanner) matchesExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range s.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func newCandidate(path string, info fs.FileInfo) Candidate {
	return Candidate{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		MimeType: detectMimeType(path),
	}
}

// detectMimeType detects the MIME type of a file based on its extension
func detectMimeType(path string) string {
	ext := filepath.Ext(path)
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}

// isHidden checks if a file or directory name is hidden (starts with ".")
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
