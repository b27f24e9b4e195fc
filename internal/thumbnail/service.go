// Package thumbnail runs the derive-then-associate flow for one drawing. Every
// entry point (upload, endpoints, worker, backfill) goes through Service.
package thumbnail

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/internal/img"
	"github.com/tendant/drawing-thumbnailer/internal/process"
	"github.com/tendant/drawing-thumbnailer/internal/store"
	"github.com/tendant/drawing-thumbnailer/internal/upload"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

// Publisher sends JSON events. *bus.Client satisfies it.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Service derives previews and attaches them to drawings.
type Service struct {
	deriver  img.Deriver
	assoc    *upload.Client
	docs     store.Repository
	logger   *slog.Logger
	inline   bool
	events   Publisher
	uploaded string
}

type Options struct {
	// DeriveInline derives during Upload. When false and Events is set, an
	// upload event is published instead.
	DeriveInline    bool
	Events          Publisher
	UploadedSubject string
}

func NewService(deriver img.Deriver, assoc *upload.Client, docs store.Repository, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deriver:  deriver,
		assoc:    assoc,
		docs:     docs,
		logger:   logger,
		inline:   opts.DeriveInline || opts.Events == nil,
		events:   opts.Events,
		uploaded: opts.UploadedSubject,
	}
}

func (s *Service) Deriver() img.Deriver        { return s.deriver }
func (s *Service) Association() *upload.Client { return s.assoc }
func (s *Service) Documents() store.Repository { return s.docs }

// Result is the outcome of Process. Preview and Ref are set as far as the
// job got.
type Result struct {
	Job     *process.Job
	Preview *img.Preview
	Ref     *upload.PreviewReference
}

// Done converts the result into a completion event.
func (r *Result) Done() schema.ThumbnailDone {
	var key, url string
	if r.Ref != nil {
		key, url = r.Ref.Key, r.Ref.URL
	}
	var params *schema.DerivationParams
	if r.Preview != nil {
		params = r.Preview.DerivationParams()
	}
	return r.Job.Done(key, url, params)
}

// Process fetches doc's original, derives a preview and attaches it.
// Unsupported kinds are skipped before anything is fetched.
func (s *Service) Process(ctx context.Context, doc *store.SourceDocument) (*Result, error) {
	res := &Result{Job: process.NewJob(doc.ID)}
	logger := s.logger.With("drawing_id", doc.ID, "job_id", res.Job.ID)

	kind := doc.Kind()
	if !kind.Supported() {
		err := failure.Errorf(failure.Unsupported, "classify", "no preview for file type %q", doc.FileType)
		process.MarkSkipped(res.Job, err)
		logger.Info("skipping unsupported drawing", "file_name", doc.FileName, "file_type", doc.FileType)
		return res, err
	}

	res.Job.Advance(process.JobStatusFetching)
	data, err := s.assoc.FetchSource(ctx, doc)
	if err != nil {
		return s.fail(res, logger, "fetch source failed", err)
	}

	res.Job.Advance(process.JobStatusDeriving)
	preview, err := s.deriver.Derive(ctx, data, declaredType(doc))
	if err != nil {
		return s.fail(res, logger, "derive preview failed", err)
	}
	res.Preview = preview

	res.Job.Advance(process.JobStatusAssociating)
	ref, err := s.assoc.AttachPreview(ctx, doc, preview.Data)
	res.Ref = ref
	if err != nil {
		return s.fail(res, logger, "attach preview failed", err)
	}

	process.MarkSucceeded(res.Job)
	logger.Info("preview attached",
		"key", ref.Key,
		"width", preview.Width,
		"height", preview.Height,
		"bytes", preview.Size(),
		"generator", preview.Generator,
		"processing_time_ms", res.Job.Duration().Milliseconds(),
	)
	return res, nil
}

func (s *Service) fail(res *Result, logger *slog.Logger, msg string, err error) (*Result, error) {
	process.MarkFailed(res.Job, err)
	logger.Error(msg, "kind", failure.KindOf(err), "err", err)
	return res, err
}

// declaredType prefers the stored file type and falls back to the extension
// so that records with a generic type still classify.
func declaredType(doc *store.SourceDocument) string {
	if schema.ParseMediaKind(doc.FileType).Supported() {
		return doc.FileType
	}
	return schema.Extension(doc.FileName)
}

// Regenerate processes the drawing with the given id.
func (s *Service) Regenerate(ctx context.Context, drawingID string) (*Result, error) {
	doc, err := s.docs.Get(ctx, drawingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, failure.New(failure.InvalidInput, "regenerate "+drawingID, err)
		}
		return nil, failure.New(failure.UpstreamFetchError, "load drawing "+drawingID, err)
	}
	return s.Process(ctx, doc)
}

// UploadRequest is one file from the upload form.
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Upload stores the original, creates the drawing record and then tries to
// derive a preview. A preview failure is logged and returned as previewErr;
// the drawing is still created with no preview key.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (doc *store.SourceDocument, previewErr error, err error) {
	name := path.Base(strings.TrimSpace(req.FileName))
	if name == "" || name == "." || name == "/" {
		return nil, nil, failure.Errorf(failure.InvalidInput, "upload", "file name is required")
	}
	if len(req.Data) == 0 {
		return nil, nil, failure.Errorf(failure.InvalidInput, "upload", "file is empty")
	}

	key, err := s.assoc.StoreOriginal(ctx, name, req.Data, req.ContentType)
	if err != nil {
		return nil, nil, err
	}

	doc = &store.SourceDocument{
		FileName:   name,
		FileType:   schema.Extension(name),
		Size:       int64(len(req.Data)),
		StorageKey: key,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, nil, failure.New(failure.StorageWriteError, "create drawing", err)
	}
	logger := s.logger.With("drawing_id", doc.ID)
	logger.Info("drawing uploaded", "file_name", name, "size", doc.Size, "key", key)

	if !doc.Kind().Supported() {
		logger.Info("no preview for file type", "file_type", doc.FileType)
		return doc, nil, nil
	}

	if !s.inline {
		evt := schema.DrawingUploaded{DrawingID: doc.ID, FileName: name, StorageKey: key, HappenedAt: time.Now().Unix()}
		if err := s.events.PublishJSON(s.uploaded, evt); err != nil {
			logger.Warn("publish upload event failed", "subject", s.uploaded, "err", err)
			return doc, err, nil
		}
		return doc, nil, nil
	}

	preview, perr := s.deriver.Derive(ctx, req.Data, declaredType(doc))
	if perr != nil {
		logger.Warn("thumbnail generation failed, continuing without preview", "kind", failure.KindOf(perr), "err", perr)
		return doc, perr, nil
	}
	ref, perr := s.assoc.AttachPreview(ctx, doc, preview.Data)
	if perr != nil {
		logger.Warn("thumbnail upload failed, continuing without preview", "kind", failure.KindOf(perr), "err", perr)
		if ref != nil && upload.IsPartial(perr) {
			if retryErr := s.assoc.Associate(ctx, ref); retryErr == nil {
				perr = nil
			}
		}
	}
	if perr == nil {
		doc.PreviewKey = &ref.Key
	}
	return doc, perr, nil
}

// GenerateForPath derives a preview of the object at bucketPath and attaches
// it to drawingID. The kind comes from the path's extension.
func (s *Service) GenerateForPath(ctx context.Context, bucketPath, drawingID string) (*img.Preview, *upload.PreviewReference, error) {
	if bucketPath == "" || drawingID == "" {
		return nil, nil, failure.Errorf(failure.InvalidInput, "generate thumbnail", "bucketPath and drawingId are required")
	}
	ext := schema.Extension(bucketPath)
	if !schema.ParseMediaKind(ext).Supported() {
		return nil, nil, failure.Errorf(failure.InvalidInput, "generate thumbnail", "unsupported file type: %q", ext)
	}

	data, err := s.assoc.FetchObject(ctx, bucketPath)
	if err != nil {
		return nil, nil, err
	}
	preview, err := s.deriver.Derive(ctx, data, ext)
	if err != nil {
		return nil, nil, err
	}

	doc := &store.SourceDocument{ID: drawingID, FileName: path.Base(bucketPath), StorageKey: bucketPath}
	ref, err := s.assoc.AttachPreview(ctx, doc, preview.Data)
	return preview, ref, err
}

// HandleObjectFinalized previews a newly written original. Writes under the
// preview prefix and unknown objects are ignored.
func (s *Service) HandleObjectFinalized(ctx context.Context, key, previewPrefix string) (*Result, error) {
	if previewPrefix != "" && strings.HasPrefix(key, previewPrefix) {
		return nil, nil
	}
	doc, err := s.docs.FindByStorageKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Info("no drawing for object, ignoring", "key", key)
			return nil, nil
		}
		return nil, failure.New(failure.UpstreamFetchError, "find drawing for "+key, err)
	}
	if doc.HasPreview() {
		return nil, nil
	}
	return s.Process(ctx, doc)
}
