package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Snapshotter writes a screenshot and the zstd-compressed page markup to
// a debug directory. A nil Snapshotter or an empty directory disables it.
type Snapshotter struct {
	dir string
	log logrus.FieldLogger
}

func NewSnapshotter(dir string, log logrus.FieldLogger) *Snapshotter {
	return &Snapshotter{dir: dir, log: log}
}

// Capture stores a snapshot of page named after label and returns the
// common path prefix of the written files.
func (s *Snapshotter) Capture(ctx context.Context, page Page, label string) (string, error) {
	if s == nil || s.dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "create debug dir %s", s.dir)
	}

	base := filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s", label, time.Now().Format("20060102T150405"), uuid.NewString()[:8]))

	if png, err := page.Screenshot(ctx); err != nil {
		s.log.WithError(err).Warn("snapshot screenshot")
	} else if err := os.WriteFile(base+".png", png, 0o644); err != nil {
		return "", eris.Wrap(err, "write screenshot")
	}

	html, err := page.HTML(ctx)
	if err != nil {
		s.log.WithError(err).Warn("snapshot markup")
		return base, nil
	}
	if err := writeCompressed(base+".html.zst", html); err != nil {
		return "", err
	}

	s.log.WithField("path", base).Info("saved page snapshot")
	return base, nil
}

func writeCompressed(path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return eris.Wrap(err, "zstd writer")
	}
	if _, err := enc.Write([]byte(content)); err != nil {
		enc.Close()
		return eris.Wrap(err, "compress snapshot")
	}
	return eris.Wrap(enc.Close(), "flush snapshot")
}
