// cmd/function/main.go runs the thumbnail endpoints as a Cloud Function. It
// also reacts to bucket finalize events for originals uploaded directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/tendant/drawing-thumbnailer/internal/app"
	"github.com/tendant/drawing-thumbnailer/internal/bus"
	"github.com/tendant/drawing-thumbnailer/internal/config"
	"github.com/tendant/drawing-thumbnailer/internal/failure"
)

var (
	instance *app.App
	router   http.Handler
	once     sync.Once
	initErr  error
)

// storageObject is the part of a GCS object-finalized payload we read.
type storageObject struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("GenerateThumbnail", handleHTTP)
	functions.CloudEvent("ThumbnailOnFinalize", onFinalize)
}

func setup() error {
	once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			initErr = err
			return
		}
		instance, initErr = app.New(context.Background(), cfg, slog.Default())
		if initErr == nil {
			router = instance.Router("drawing-thumbnailer-function", true)
		}
	})
	return initErr
}

func handleHTTP(w http.ResponseWriter, r *http.Request) {
	if err := setup(); err != nil {
		slog.Error("function initialization failed", "error", err)
		http.Error(w, `{"success":false,"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	router.ServeHTTP(w, r)
}

func onFinalize(ctx context.Context, e cloudevents.Event) error {
	if err := setup(); err != nil {
		slog.Error("function initialization failed", "error", err)
		return err
	}

	var obj storageObject
	if err := json.Unmarshal(e.Data(), &obj); err != nil {
		slog.Error("failed to unmarshal event data", "error", err, "event_id", e.ID())
		return fmt.Errorf("decode storage event: %w", err)
	}
	logger := slog.With("bucket", obj.Bucket, "object", obj.Name, "event_id", e.ID())

	res, err := instance.Service.HandleObjectFinalized(ctx, obj.Name, instance.Config.Prefix)
	if res != nil {
		instance.Publish(instance.Config.DoneSubject, bus.TypeThumbnailDone, res.Done())
	}
	if failure.Is(err, failure.Unsupported) {
		logger.Info("no preview for object type")
		return nil
	}
	if err != nil {
		logger.Error("thumbnail for finalized object failed", "error", err)
		return err
	}
	if res == nil {
		logger.Debug("object ignored")
	}
	return nil
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.Start", "error", err)
		os.Exit(1)
	}
}
