package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediasort/pkg/camera"
	"mediasort/pkg/duplicates"
	"mediasort/pkg/layout"
	"mediasort/pkg/metadata"
)

// QuarantineDir receives duplicates in DuplicatesQuarantine mode.
const QuarantineDir = "deleted/"

// DuplicateMode selects how copies such as "img (2).jpg" are handled.
type DuplicateMode string

const (
	DuplicatesOff        DuplicateMode = "off"
	DuplicatesDelete     DuplicateMode = "delete"
	DuplicatesQuarantine DuplicateMode = "quarantine"
)

type SourceFileRepository interface {
	SourcePath() string
	GetSourceFiles() ([]SourceEntry, error)
	RemoveSourceFile(fpath string) error
}

type DestinationFileRepository interface {
	OutputPath() string
	Move(src, rel string) (string, error)
	Plan(src, rel string) (string, error)
}

type CatalogDbRepository interface {
	AddMove(rec *MoveRecord) (string, error)
	SaveRun(run *RunRecord) error
}

type Extractor interface {
	Extract(path string, kind metadata.Kind) metadata.Info
}

// Observer follows placement progress. Calls come from a single goroutine.
type Observer interface {
	Start(total int)
	FileDone(item ItemResult)
	Finish()
}

type Options struct {
	Layout       layout.Layout
	Duplicates   DuplicateMode
	IncludeOther bool
	DryRun       bool
	Workers      int
	RunID        string
	Logger       logrus.FieldLogger
	Observer     Observer
}

type Service interface {
	// Run executes list, duplicate handling, extraction and placement.
	Run(ctx context.Context) (*Report, error)
	// Cameras counts images per normalized camera name without moving anything.
	Cameras(ctx context.Context) (camera.Counts, error)
}

type service struct {
	sfr  SourceFileRepository
	dfr  DestinationFileRepository
	sdr  CatalogDbRepository
	ex   Extractor
	opts Options
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewService wires the pipeline. sdr may be nil to skip the catalog.
func NewService(sfr SourceFileRepository, dfr DestinationFileRepository, sdr CatalogDbRepository, ex Extractor, opts Options) Service {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	if opts.Duplicates == "" {
		opts.Duplicates = DuplicatesOff
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &service{
		sfr:  sfr,
		dfr:  dfr,
		sdr:  sdr,
		ex:   ex,
		opts: opts,
		log:  log.WithField("run_id", opts.RunID),
		now:  time.Now,
	}
}

func (s *service) validate() error {
	if err := s.opts.Layout.Validate(); err != nil {
		return err
	}
	switch s.opts.Duplicates {
	case DuplicatesOff, DuplicatesDelete, DuplicatesQuarantine:
	default:
		return fmt.Errorf("unknown duplicate mode %q", s.opts.Duplicates)
	}
	if s.sfr == nil || s.dfr == nil || s.ex == nil {
		return errors.New("imports: source, destination and extractor are required")
	}
	return nil
}

func (s *service) Run(ctx context.Context) (*Report, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     s.opts.RunID,
		SourceDir: s.sfr.SourcePath(),
		OutputDir: s.dfr.OutputPath(),
		DryRun:    s.opts.DryRun,
		StartedAt: s.now(),
	}
	s.log.WithFields(logrus.Fields{
		"source":  report.SourceDir,
		"output":  report.OutputDir,
		"layout":  s.opts.Layout.String(),
		"dry_run": s.opts.DryRun,
	}).Info("scanning source directory")

	entries, err := s.sfr.GetSourceFiles()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", report.SourceDir, err)
	}

	entries = s.handleDuplicates(entries, report)
	files := s.classify(entries, report)
	s.extractAll(ctx, files)

	obs := s.opts.Observer
	if obs != nil {
		obs.Start(len(files))
	}
	for i := range files {
		if ctx.Err() != nil {
			break
		}
		item := s.place(&files[i])
		report.Items = append(report.Items, item)
		if obs != nil {
			obs.FileDone(item)
		}
	}
	if obs != nil {
		obs.Finish()
	}

	report.Cameras = camera.Count(imageCameras(files))
	report.FinishedAt = s.now()
	report.Finalize()
	s.saveRun(report)

	s.log.WithFields(logrus.Fields{
		"moved":      report.Summary.Moved,
		"planned":    report.Summary.Planned,
		"duplicates": report.Summary.Duplicates,
		"skipped":    report.Summary.Skipped,
		"failed":     report.Summary.Failed,
		"nodate":     report.Summary.NoDate,
		"elapsed":    report.FinishedAt.Sub(report.StartedAt),
	}).Info("run finished")

	return report, ctx.Err()
}

func (s *service) Cameras(ctx context.Context) (camera.Counts, error) {
	entries, err := s.sfr.GetSourceFiles()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.sfr.SourcePath(), err)
	}
	var images []MediaFile
	for _, f := range s.classify(entries, &Report{}) {
		if f.Kind == metadata.KindImage {
			images = append(images, f)
		}
	}
	s.extractAll(ctx, images)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return camera.Count(imageCameras(images)), nil
}

// handleDuplicates applies the duplicate mode and returns the entries that
// still need placing. Detection is by name only: when sizes differ the copy is
// reported with a warning but handled all the same.
func (s *service) handleDuplicates(entries []SourceEntry, report *Report) []SourceEntry {
	if s.opts.Duplicates == DuplicatesOff {
		return entries
	}

	byName := make(map[string]SourceEntry, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
		names = append(names, e.Name)
	}
	dups := duplicates.Set(duplicates.Detect(names))
	if len(dups) == 0 {
		return entries
	}

	kept := make([]SourceEntry, 0, len(entries)-len(dups))
	for _, e := range entries {
		d, ok := dups[e.Name]
		if !ok {
			kept = append(kept, e)
			continue
		}

		log := s.log.WithFields(logrus.Fields{"file": e.Name, "original": d.Original, "mode": s.opts.Duplicates})
		if orig := byName[d.Original]; d.Kind == duplicates.KindCopySuffix && orig.Size != e.Size {
			log.WithFields(logrus.Fields{"size": e.Size, "original_size": orig.Size}).
				Warn("duplicate name but sizes differ; handling it as a duplicate anyway")
		}

		item := ItemResult{
			Name:        e.Name,
			Source:      e.Path,
			Kind:        metadata.KindByExt(e.Name),
			Status:      StatusDuplicate,
			DuplicateOf: d.Original,
		}
		dst, err := s.removeDuplicate(e)
		item.Destination = dst
		if err != nil {
			item.Status = StatusFailed
			item.Err = err
			log.WithError(err).Error("failed to remove duplicate")
		} else {
			log.Info("removed duplicate")
		}
		report.Items = append(report.Items, item)
	}
	return kept
}

func (s *service) removeDuplicate(e SourceEntry) (string, error) {
	switch s.opts.Duplicates {
	case DuplicatesDelete:
		if s.opts.DryRun {
			return "", nil
		}
		return "", s.sfr.RemoveSourceFile(e.Path)
	case DuplicatesQuarantine:
		rel := QuarantineDir + e.Name
		if s.opts.DryRun {
			return s.dfr.Plan(e.Path, rel)
		}
		return s.dfr.Move(e.Path, rel)
	}
	return "", nil
}

// classify infers each entry's kind, by extension first and by content for
// unknown extensions. AppleDouble resource forks and, unless IncludeOther is
// set, non-media files are reported as skipped.
func (s *service) classify(entries []SourceEntry, report *Report) []MediaFile {
	files := make([]MediaFile, 0, len(entries))
	for _, e := range entries {
		kind := metadata.KindByExt(e.Name)
		if kind == metadata.KindOther {
			kind = s.detectMimetype(e.Path)
		}

		skip := ""
		switch {
		case strings.HasPrefix(e.Name, "._"):
			skip = "resource fork"
		case kind == metadata.KindOther && !s.opts.IncludeOther:
			skip = "not a photo or video"
		}
		if skip != "" {
			s.log.WithFields(logrus.Fields{"file": e.Name, "reason": skip}).Debug("skipping file")
			report.Items = append(report.Items, ItemResult{Name: e.Name, Source: e.Path, Kind: kind, Status: StatusSkipped})
			continue
		}
		files = append(files, MediaFile{Path: e.Path, Name: e.Name, Size: e.Size, Kind: kind})
	}
	return files
}

// detectMimetype sniffs the content of a file whose extension is unknown.
func (s *service) detectMimetype(path string) metadata.Kind {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		s.log.WithFields(logrus.Fields{"path": path, "error": err}).Debug("mimetype detection failed")
		return metadata.KindOther
	}
	switch {
	case strings.HasPrefix(mtype.String(), "image/"):
		return metadata.KindImage
	case strings.HasPrefix(mtype.String(), "video/"):
		return metadata.KindVideo
	default:
		return metadata.KindOther
	}
}

// extractAll fills Taken and Camera using a bounded worker pool. Extraction
// is read-only, so workers never touch the filesystem layout.
func (s *service) extractAll(ctx context.Context, files []MediaFile) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				info := s.ex.Extract(files[i].Path, files[i].Kind)
				files[i].Taken = info.Taken
				files[i].Camera = info.Camera
			}
		}()
	}

feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}

// place computes the destination of f and moves it there (or only plans it
// in dry-run mode). Errors are logged and reported; they never stop the run.
func (s *service) place(f *MediaFile) ItemResult {
	item := ItemResult{
		Name:   f.Name,
		Source: f.Path,
		Kind:   f.Kind,
		Taken:  f.Taken,
		Camera: f.Camera,
	}

	rel := layout.NoDateDir
	if f.Taken.Known() {
		rel = s.opts.Layout.Path(f.Taken.Time)
	}
	relDst := s.opts.Layout.Destination(rel, f.Name)

	log := s.log.WithFields(logrus.Fields{"file": f.Name, "source": f.Taken.Source, "target": relDst})

	var (
		dst string
		err error
	)
	if s.opts.DryRun {
		dst, err = s.dfr.Plan(f.Path, relDst)
		item.Status = StatusPlanned
	} else {
		dst, err = s.dfr.Move(f.Path, relDst)
		item.Status = StatusMoved
	}
	if err != nil {
		item.Status = StatusFailed
		item.Err = err
		log.WithError(err).Error("failed to move file")
		return item
	}
	item.Destination = dst
	if s.opts.DryRun {
		log.WithField("dest", dst).Info("would move file")
		return item
	}
	log.WithField("dest", dst).Debug("moved file")
	s.recordMove(item)
	return item
}

func (s *service) recordMove(item ItemResult) {
	if s.sdr == nil {
		return
	}
	rec := &MoveRecord{
		RunID:       s.opts.RunID,
		Source:      item.Source,
		Destination: item.Destination,
		Taken:       item.Taken.Time,
		TakenSource: string(item.Taken.Source),
		Camera:      camera.Normalize(item.Camera),
		MovedAt:     s.now(),
	}
	if _, err := s.sdr.AddMove(rec); err != nil {
		s.log.WithFields(logrus.Fields{"dest": item.Destination, "error": err}).Warn("failed to record move in catalog")
	}
}

func (s *service) saveRun(r *Report) {
	if s.sdr == nil || r.DryRun {
		return
	}
	run := &RunRecord{
		ID:         r.RunID,
		SourceDir:  r.SourceDir,
		OutputDir:  r.OutputDir,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Moved:      r.Summary.Moved,
		Duplicates: r.Summary.Duplicates,
		Failed:     r.Summary.Failed,
	}
	if err := s.sdr.SaveRun(run); err != nil {
		s.log.WithError(err).Warn("failed to record run in catalog")
	}
}

func imageCameras(files []MediaFile) []string {
	var names []string
	for _, f := range files {
		if f.Kind == metadata.KindImage {
			names = append(names, f.Camera)
		}
	}
	return names
}
