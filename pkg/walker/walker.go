// Package walker enumerates regular files under a scan root, routes each one
// through the classifier and extractor, and accumulates one result per file.
// Failure isolation is per-file: nothing a single file does can abort the
// walk.
package walker

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kosterlab/kosterscan/pkg/classifier"
	"github.com/kosterlab/kosterscan/pkg/extractor"
	"github.com/kosterlab/kosterscan/pkg/runlog"
)

// Status is the outcome for one visited file.
type Status string

const (
	StatusProcessed Status = "Processed"
	StatusSkipped   Status = "Skipped"
	StatusFailed    Status = "Failed"
)

// Reason classifies why a file was not processed.
type Reason string

const (
	ReasonUnsupported Reason = "SkipUnsupported"
	ReasonUnreadable  Reason = "SkipUnreadable"
	ReasonCyclicLink  Reason = "CyclicLink"
	ReasonMalformed   Reason = "MalformedData"
)

// Result is the immutable outcome for one visited file.
type Result struct {
	Path   string
	Status Status
	Reason Reason  // empty when Status == StatusProcessed
	Detail string  // human-readable cause, empty when processed
	Format string  // format tag for extract-routed files
	Record *extractor.Record
}

// Options controls a single scan.
type Options struct {
	// ScanOnly classifies without extracting; extractable files are
	// Processed with no record.
	ScanOnly bool

	// Workers bounds parallel extraction. Values below 2 keep the scan
	// fully sequential.
	Workers int

	// Progress, when non-nil, is notified after every visited file.
	Progress ProgressSink
}

// Walker drives one scan over a directory tree.
type Walker struct {
	classifier *classifier.Classifier
	extractor  *extractor.Extractor
}

// New creates a Walker over the given classifier and extractor.
func New(c *classifier.Classifier, e *extractor.Extractor) *Walker {
	return &Walker{classifier: c, extractor: e}
}

// Scan visits every regular file under root in lexicographic path order and
// returns one Result per file. Directory symlinks are followed once; a link
// that resolves into an already-visited directory is recorded as a CyclicLink
// skip instead of being followed. On context cancellation the results
// accumulated so far are returned along with ctx.Err().
func (w *Walker) Scan(ctx context.Context, root string, logger *runlog.Logger, opts Options) ([]Result, error) {
	s := &scanState{
		walker:  w,
		logger:  logger,
		opts:    opts,
		visited: map[string]bool{},
	}
	if opts.Workers > 1 {
		s.group, s.groupCtx = errgroup.WithContext(ctx)
		s.group.SetLimit(opts.Workers)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}
	s.visited[realRoot] = true

	walkErr := s.walkDir(ctx, root)

	if s.group != nil {
		if err := s.group.Wait(); err != nil && walkErr == nil {
			walkErr = err
		}
	}

	// Parallel extraction finishes out of order; restore path order.
	sort.Slice(s.results, func(i, j int) bool { return s.results[i].Path < s.results[j].Path })

	return s.results, walkErr
}

type scanState struct {
	walker   *Walker
	logger   *runlog.Logger
	opts     Options
	visited  map[string]bool // real paths of entered directories
	group    *errgroup.Group
	groupCtx context.Context

	mu       sync.Mutex
	results  []Result
	progress Progress
}

// walkDir recurses into dir, visiting entries in the sorted order os.ReadDir
// guarantees.
func (s *scanState) walkDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// The root is validated before the scan starts; a subdirectory
		// going unreadable mid-scan is logged and skipped. Results are
		// per-file only, so the directory itself gets no entry.
		if s.logger != nil {
			s.logger.Warn("directory unreadable", runlog.Fields{"path": dir, "detail": err.Error()})
		}
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, entry.Name())

		switch {
		case entry.Type()&fs.ModeSymlink != 0:
			if err := s.visitSymlink(ctx, path); err != nil {
				return err
			}
		case entry.IsDir():
			real := realPath(path)
			s.visited[real] = true
			if err := s.walkDir(ctx, path); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			s.visitFile(ctx, path, entry)
		}
		// Other entry kinds (sockets, devices) are not data files and are
		// not results.
	}
	return nil
}

// visitSymlink resolves a link and either visits its file target, recurses
// into its directory target, or records a cycle skip.
func (s *scanState) visitSymlink(ctx context.Context, path string) error {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		s.record(Result{Path: path, Status: StatusSkipped, Reason: ReasonUnreadable, Detail: "broken symlink: " + err.Error()})
		return nil
	}
	info, err := os.Stat(real)
	if err != nil {
		s.record(Result{Path: path, Status: StatusSkipped, Reason: ReasonUnreadable, Detail: err.Error()})
		return nil
	}

	if info.IsDir() {
		if s.visited[real] {
			s.record(Result{Path: path, Status: StatusSkipped, Reason: ReasonCyclicLink, Detail: "link target already visited: " + real})
			return nil
		}
		s.visited[real] = true
		return s.walkDir(ctx, path)
	}

	s.visitFile(ctx, path, nil)
	return nil
}

func (s *scanState) visitFile(_ context.Context, path string, entry fs.DirEntry) {
	var info fs.FileInfo
	if entry != nil {
		if i, err := entry.Info(); err == nil {
			info = i
		}
	}

	route := s.walker.classifier.Classify(path, info)

	switch route.Kind {
	case classifier.RouteSkipUnsupported:
		s.record(Result{Path: path, Status: StatusSkipped, Reason: ReasonUnsupported, Detail: route.Detail})
	case classifier.RouteSkipUnreadable:
		detail := route.Detail
		if route.Cause != nil {
			detail = route.Cause.Error()
		}
		s.record(Result{Path: path, Status: StatusSkipped, Reason: ReasonUnreadable, Detail: detail})
	case classifier.RouteExtract:
		if s.opts.ScanOnly {
			s.record(Result{Path: path, Status: StatusProcessed, Format: route.FormatTag})
			return
		}
		if s.group != nil {
			s.group.Go(func() error {
				if err := s.groupCtx.Err(); err != nil {
					return err
				}
				s.record(s.extract(path, route.FormatTag))
				return nil
			})
			return
		}
		s.record(s.extract(path, route.FormatTag))
	}
}

// extract runs the all-or-nothing extraction for one file.
func (s *scanState) extract(path, tag string) Result {
	rec, err := s.walker.extractor.Extract(path, tag)
	if err != nil {
		detail := err.Error()
		var malformed *extractor.MalformedDataError
		if errors.As(err, &malformed) {
			detail = malformed.Detail
		}
		return Result{Path: path, Status: StatusFailed, Reason: ReasonMalformed, Detail: detail, Format: tag}
	}
	return Result{Path: path, Status: StatusProcessed, Format: tag, Record: rec}
}

// record appends a result, emits its log event, and notifies the progress
// sink. One call per visited file, always before the next file completes.
func (s *scanState) record(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, r)
	s.progress.Visited++

	fields := runlog.Fields{"path": r.Path, "status": string(r.Status)}
	if r.Format != "" {
		fields["format"] = r.Format
	}
	if r.Reason != "" {
		fields["reason"] = string(r.Reason)
	}
	if r.Detail != "" {
		fields["detail"] = r.Detail
	}
	if r.Record != nil {
		fields["rows"] = r.Record.Rows
	}

	switch r.Status {
	case StatusProcessed:
		s.progress.Processed++
		if s.logger != nil {
			s.logger.Info("file processed", fields)
		}
	case StatusSkipped:
		s.progress.Skipped++
		if s.logger != nil {
			s.logger.Warn("file skipped", fields)
		}
	case StatusFailed:
		s.progress.Failed++
		if s.logger != nil {
			s.logger.Error("file failed", fields)
		}
	}

	if s.opts.Progress != nil {
		s.opts.Progress.Update(r.Path, s.progress)
	}
}

func realPath(path string) string {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return real
}
