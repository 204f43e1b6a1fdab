package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"sitekit/pkg/contracts/domain"
)

// slugPattern restricts slugs to path-safe stems. No separators and
// no dots, so a slug can never escape the content directory or shadow
// the fallback's directory-index resolution.
var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// PageService manages content pages as HTML files inside the site
// directory. The template fallback then serves whatever this service
// writes, so a created page is immediately routable.
type PageService struct {
	dir       string
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewPageService creates a page service rooted at dir.
func NewPageService(dir string, logger *slog.Logger) *PageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageService{
		dir:       dir,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With(slog.String("service", "pages")),
	}
}

// List returns all pages sorted by slug.
func (s *PageService) List(ctx context.Context) ([]domain.Page, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list pages: %w", err)
	}

	var pages []domain.Page
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		slug := strings.TrimSuffix(entry.Name(), ".html")
		if !slugPattern.MatchString(slug) {
			continue
		}
		page, err := s.Get(ctx, slug)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable page",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
			continue
		}
		pages = append(pages, page)
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })
	return pages, nil
}

// Get reads one page by slug.
func (s *PageService) Get(ctx context.Context, slug string) (domain.Page, error) {
	path, err := s.path(slug)
	if err != nil {
		return domain.Page{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.Page{}, fmt.Errorf("page %q: %w", slug, ErrPageNotFound)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Page{}, fmt.Errorf("read page %q: %w", slug, err)
	}

	title, body := splitDocument(string(raw))
	return domain.Page{
		Slug:      slug,
		Title:     title,
		Body:      body,
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Create writes a new page. The body is sanitized through the UGC
// policy before it touches disk, since it arrives over the API.
func (s *PageService) Create(ctx context.Context, slug, title, body string) (domain.Page, error) {
	path, err := s.path(slug)
	if err != nil {
		return domain.Page{}, err
	}
	if _, err := os.Stat(path); err == nil {
		return domain.Page{}, fmt.Errorf("page %q: %w", slug, ErrPageExists)
	}
	return s.write(ctx, slug, path, title, body)
}

// Update overwrites an existing page.
func (s *PageService) Update(ctx context.Context, slug, title, body string) (domain.Page, error) {
	path, err := s.path(slug)
	if err != nil {
		return domain.Page{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return domain.Page{}, fmt.Errorf("page %q: %w", slug, ErrPageNotFound)
	}
	return s.write(ctx, slug, path, title, body)
}

// Delete removes a page.
func (s *PageService) Delete(ctx context.Context, slug string) error {
	path, err := s.path(slug)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("page %q: %w", slug, ErrPageNotFound)
		}
		return fmt.Errorf("delete page %q: %w", slug, err)
	}
	s.logger.InfoContext(ctx, "page deleted", slog.String("slug", slug))
	return nil
}

func (s *PageService) write(ctx context.Context, slug, path, title, body string) (domain.Page, error) {
	clean := s.sanitizer.Sanitize(body)
	doc := renderDocument(title, clean)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.Page{}, fmt.Errorf("create content dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return domain.Page{}, fmt.Errorf("write page %q: %w", slug, err)
	}

	s.logger.InfoContext(ctx, "page written",
		slog.String("slug", slug),
		slog.Int("bytes", len(doc)),
	)
	return s.Get(ctx, slug)
}

func (s *PageService) path(slug string) (string, error) {
	if !slugPattern.MatchString(slug) {
		return "", fmt.Errorf("slug %q: %w", slug, ErrInvalidSlug)
	}
	return filepath.Join(s.dir, slug+".html"), nil
}

// renderDocument wraps a sanitized body in the stored page format:
// an HTML comment carrying the title, then the body. Keeping the file
// a plain template means the fallback can serve it directly.
func renderDocument(title, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- title: %s -->\n", strings.ReplaceAll(title, "-->", ""))
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// splitDocument recovers the title comment and body from a stored
// page file. Files without the comment get an empty title.
func splitDocument(doc string) (title, body string) {
	const prefix = "<!-- title: "
	if strings.HasPrefix(doc, prefix) {
		if end := strings.Index(doc, " -->\n"); end > len(prefix) {
			return doc[len(prefix):end], doc[end+len(" -->\n"):]
		}
	}
	return "", doc
}

// ContentDir exposes the directory pages are stored in.
func (s *PageService) ContentDir() string {
	return s.dir
}
