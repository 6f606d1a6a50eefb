// Package api exposes a read-only JSON listing of a staging directory.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// IndexResponse lists the staging directory.
type IndexResponse struct {
	NumFiles       int      `json:"num_files"`
	AllFiles       []string `json:"all_files"`
	ImagesBasePath string   `json:"images_base_path"`
}

// ImageResponse describes the n-th entry of the listing.
type ImageResponse struct {
	Successful bool   `json:"successful"`
	ImgName    string `json:"img_name,omitempty"`
	AbsImgPath string `json:"abs_img_path,omitempty"`
}

// Handler serves listings of dir.
type Handler struct {
	dir string
	log logrus.FieldLogger
}

// NewHandler creates a Handler for dir, which should be absolute.
func NewHandler(dir string, log logrus.FieldLogger) *Handler {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Handler{dir: dir, log: log}
}

// NewRouter mounts the listing endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Get("/", h.Index)
	r.Get("/{n:[0-9]+}", h.Image)
	return r
}

// entries returns the names in the staging directory in name order.
func (h *Handler) entries() ([]string, error) {
	list, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names, nil
}

// Index returns every entry of the staging directory.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	names, err := h.entries()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, IndexResponse{
		NumFiles:       len(names),
		AllFiles:       names,
		ImagesBasePath: h.dir,
	})
}

// Image returns the entry at position n, or successful=false when n is out
// of range.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	names, err := h.entries()
	if err != nil {
		h.fail(w, err)
		return
	}
	if n >= len(names) {
		writeJSON(w, ImageResponse{Successful: false})
		return
	}
	writeJSON(w, ImageResponse{
		Successful: true,
		ImgName:    names[n],
		AbsImgPath: filepath.Join(h.dir, names[n]),
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.log.WithFields(logrus.Fields{"dir": h.dir, "error": err}).Error("failed to list staging directory")
	http.Error(w, "staging directory unavailable", http.StatusInternalServerError)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  ww.Status(),
			"elapsed": time.Since(start),
		}).Debug("request")
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
