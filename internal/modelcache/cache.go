package modelcache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"convrt/internal/config"
	"convrt/internal/logging"
	"convrt/internal/services"
)

const (
	filePrefix       = "ggml-"
	fileSuffix       = ".bin"
	defaultLockRetry = 250 * time.Millisecond
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ProgressFunc observes download progress. total is -1 when unknown.
type ProgressFunc func(name string, written, total int64)

// Options configures a Cache.
type Options struct {
	Dir       string
	BaseURL   string
	UserAgent string
	// Timeout bounds a single download; zero disables it.
	Timeout   time.Duration
	Client    *http.Client
	Logger    *slog.Logger
	LockRetry time.Duration
	Progress  ProgressFunc
}

// Descriptor reports what the cache knows about one model.
type Descriptor struct {
	Name      string        `json:"name"`
	FileName  string        `json:"fileName"`
	LocalPath string        `json:"localPath"`
	Present   bool          `json:"present"`
	SizeBytes int64         `json:"sizeBytes,omitempty"`
	Catalog   *CatalogEntry `json:"catalog,omitempty"`
}

// Cache owns the name to file mapping for acoustic models.
type Cache struct {
	dir       string
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *http.Client
	logger    *slog.Logger
	lockRetry time.Duration
	progress  ProgressFunc
	locks     *keyedLock
}

// New constructs a cache rooted at opts.Dir.
func New(opts Options) (*Cache, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, errors.New("modelcache: directory is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("modelcache: base url is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	retry := opts.LockRetry
	if retry <= 0 {
		retry = defaultLockRetry
	}
	return &Cache{
		dir:       dir,
		baseURL:   baseURL,
		userAgent: strings.TrimSpace(opts.UserAgent),
		timeout:   opts.Timeout,
		client:    client,
		logger:    logging.NewComponentLogger(opts.Logger, "modelcache"),
		lockRetry: retry,
		progress:  opts.Progress,
		locks:     newKeyedLock(),
	}, nil
}

// NewFromConfig builds a cache from the [models] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, progress ProgressFunc) (*Cache, error) {
	return New(Options{
		Dir:       cfg.ModelsDir(),
		BaseURL:   cfg.Models.BaseURL,
		UserAgent: cfg.Models.UserAgent,
		Timeout:   cfg.DownloadTimeout(),
		Logger:    logger,
		Progress:  progress,
	})
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// ValidateName rejects names that could escape the cache directory.
func ValidateName(name string) error {
	if !validName.MatchString(name) || strings.Contains(name, "..") {
		return services.New(services.KindValidation, "modelcache.name", fmt.Sprintf("invalid model name %q", name))
	}
	return nil
}

// FileName returns the canonical file name for a model.
func FileName(name string) string {
	return filePrefix + name + fileSuffix
}

// Path returns the canonical local path for name without touching the filesystem.
func (c *Cache) Path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(c.dir, FileName(name)), nil
}

// URL returns the download location for name.
func (c *Cache) URL(name string) string {
	return c.baseURL + "/" + FileName(name)
}

// Describe reports the local state of name.
func (c *Cache) Describe(name string) (Descriptor, error) {
	path, err := c.Path(name)
	if err != nil {
		return Descriptor{}, err
	}
	desc := Descriptor{Name: strings.TrimSpace(name), FileName: filepath.Base(path), LocalPath: path}
	if entry, ok := Lookup(desc.Name); ok {
		desc.Catalog = &entry
	}
	if info, ok := present(path); ok {
		desc.Present = true
		desc.SizeBytes = info.Size()
	}
	return desc, nil
}

// List returns every catalog model plus any other ggml-*.bin files found in
// the cache directory, catalog entries first.
func (c *Cache) List() ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(catalog))
	seen := make(map[string]struct{}, len(catalog))
	for _, entry := range catalog {
		desc, err := c.Describe(entry.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
		seen[entry.Name] = struct{}{}
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, services.Wrap(services.ErrFilesystem, "modelcache.list", "read cache directory", err)
	}
	var extra []Descriptor
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(fileName, filePrefix) || !strings.HasSuffix(fileName, fileSuffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(fileName, filePrefix), fileSuffix)
		if _, ok := seen[name]; ok || ValidateName(name) != nil {
			continue
		}
		desc, err := c.Describe(name)
		if err != nil {
			continue
		}
		extra = append(extra, desc)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
	return append(out, extra...), nil
}

// Downloaded returns the names of the models present on disk.
func (c *Cache) Downloaded() ([]string, error) {
	all, err := c.List()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, desc := range all {
		if desc.Present {
			names = append(names, desc.Name)
		}
	}
	return names, nil
}

func present(path string) (os.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	return info, true
}
