package modelcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"convrt/internal/logging"
	"convrt/internal/services"
)

const progressInterval = 8 << 20

// Resolve returns the local path of model name, downloading it first when it
// is not cached. A cached model is returned without any network traffic.
func (c *Cache) Resolve(ctx context.Context, name string) (string, error) {
	const op = "modelcache.resolve"
	path, err := c.Path(name)
	if err != nil {
		return "", err
	}
	name = filepath.Base(path)
	name = name[len(filePrefix) : len(name)-len(fileSuffix)]

	if _, ok := present(path); ok {
		return path, nil
	}

	unlock, err := c.locks.lock(ctx, name)
	if err != nil {
		return "", services.Canceled(op, err)
	}
	defer unlock()
	if _, ok := present(path); ok {
		return path, nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFilesystem, op, "create cache directory", err)
	}
	fileLock := flock.New(filepath.Join(c.dir, name+".lock"))
	locked, err := fileLock.TryLockContext(ctx, c.lockRetry)
	if err != nil {
		if ctx.Err() != nil {
			return "", services.Canceled(op, ctx.Err())
		}
		return "", services.Wrap(services.ErrFilesystem, op, "lock model file", err)
	}
	if !locked {
		return "", services.Canceled(op, ctx.Err())
	}
	defer func() {
		_ = fileLock.Unlock()
	}()
	if _, ok := present(path); ok {
		c.logger.Info("model downloaded by another process", logging.String("model", name))
		return path, nil
	}

	if err := c.download(ctx, name, path); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Cache) download(ctx context.Context, name, path string) error {
	const op = "modelcache.download"
	logger := logging.WithContext(ctx, c.logger).With(logging.String("model", name))

	dlCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := c.URL(name)
	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrNetwork, op, "build request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	started := time.Now()
	logger.Info("model download started", logging.String("url", url))
	resp, err := c.client.Do(req)
	if err != nil {
		return c.transferError(ctx, op, "request model", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &services.Error{
			Kind:       services.KindNetwork,
			Op:         op,
			Message:    fmt.Sprintf("GET %s: %s", url, resp.Status),
			StatusCode: resp.StatusCode,
		}
	}

	tmp, err := os.CreateTemp(c.dir, FileName(name)+".*.part")
	if err != nil {
		return services.Wrap(services.ErrFilesystem, op, "create temporary file", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	writer := &trackingWriter{w: tmp, name: name, total: resp.ContentLength, progress: c.progress}
	written, err := io.Copy(writer, resp.Body)
	if err != nil {
		if writer.err != nil {
			return services.Wrap(services.ErrFilesystem, op, "write model file", writer.err)
		}
		return c.transferError(ctx, op, "read model body", err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return services.New(services.KindNetwork, op,
			fmt.Sprintf("download truncated: received %d of %d bytes", written, resp.ContentLength))
	}
	if written == 0 {
		return services.New(services.KindNetwork, op, "server returned an empty model")
	}

	if err := tmp.Sync(); err != nil {
		return services.Wrap(services.ErrFilesystem, op, "sync model file", err)
	}
	if err := tmp.Close(); err != nil {
		return services.Wrap(services.ErrFilesystem, op, "close model file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return services.Wrap(services.ErrFilesystem, op, "move model into place", err)
	}
	committed = true

	logger.Info("model download complete",
		logging.String("path", path),
		logging.String("size", humanize.Bytes(uint64(written))),
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "model_download_complete"),
	)
	return nil
}

// transferError separates caller cancellation from network failures,
// including the download deadline.
func (c *Cache) transferError(parent context.Context, op, message string, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return services.Canceled(op, parent.Err())
	}
	return services.Wrap(services.ErrNetwork, op, message, err)
}

type trackingWriter struct {
	w        io.Writer
	err      error
	name     string
	written  int64
	total    int64
	reported int64
	progress ProgressFunc
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.written += int64(n)
	if err != nil {
		t.err = err
		return n, err
	}
	if t.progress != nil && (t.written-t.reported >= progressInterval || t.written == t.total) {
		t.reported = t.written
		t.progress(t.name, t.written, t.total)
	}
	return n, nil
}
