package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/exam-assets/pkg/examfolders"
)

// maxUploadMemory bounds the multipart form held in memory before spilling to disk
const maxUploadMemory = 32 << 20

// Handler serves the exam folder hierarchy over HTTP
type Handler struct {
	store    examfolders.ObjectStore
	taxonomy examfolders.Branch
	basePath string
	uploader *examfolders.Uploader
	lister   *examfolders.Lister
	logger   *slog.Logger
}

// NewHandler creates a new exam folder handler
func NewHandler(store examfolders.ObjectStore, taxonomy examfolders.Branch, basePath string, uploader *examfolders.Uploader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    store,
		taxonomy: taxonomy,
		basePath: basePath,
		uploader: uploader,
		lister:   examfolders.NewLister(store, basePath, logger),
		logger:   logger,
	}
}

// Routes returns the router for exam folder endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/plan", h.GetPlan)
	r.Get("/structure", h.GetStructure)
	r.Get("/verify", h.VerifyStructure)
	r.Get("/files", h.ListFiles)
	r.Post("/files", h.UploadFile)
	r.Delete("/files", h.DeleteFile)
	r.Get("/stats", h.GetStats)
	r.Get("/url", h.GetPublicURL)
	return r
}

// UploadResponse is returned after a successful upload
type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// URLResponse carries a derived public URL
type URLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// GetPlan returns the folders the taxonomy maps to, without touching storage
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, examfolders.Plan(h.taxonomy, h.basePath))
}

// GetStructure reconstructs the folder hierarchy from the stored keys
func (h *Handler) GetStructure(w http.ResponseWriter, r *http.Request) {
	structure, err := examfolders.Reconstruct(r.Context(), h.store, h.basePath)
	if err != nil {
		h.logger.Error("Failed to reconstruct structure", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, structure)
}

// VerifyStructure diffs the stored hierarchy against the taxonomy
func (h *Handler) VerifyStructure(w http.ResponseWriter, r *http.Request) {
	structure, err := examfolders.Reconstruct(r.Context(), h.store, h.basePath)
	if err != nil {
		h.logger.Error("Failed to reconstruct structure", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, examfolders.Verify(h.taxonomy, structure))
}

// ListFiles lists the media files in a folder. recursive=true includes subfolders.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	loc, ok := locationFromQuery(w, r)
	if !ok {
		return
	}

	list := h.lister.List
	if recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive")); recursive {
		list = h.lister.ListAll
	}

	files, err := list(r.Context(), loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, files)
}

// GetStats aggregates the files under a folder
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	loc, ok := locationFromQuery(w, r)
	if !ok {
		return
	}

	stats, err := h.lister.Stats(r.Context(), loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, stats)
}

// UploadFile stores a multipart "file" field in the folder named by the
// category, subcategory and item form fields.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.Error("Fail to parse upload form", "err", err)
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Fail to read upload", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loc := examfolders.Location{
		Category:    r.FormValue("category"),
		Subcategory: r.FormValue("subcategory"),
		Item:        r.FormValue("item"),
	}
	fileName := r.FormValue("file_name")
	if fileName == "" {
		fileName = header.Filename
	}

	key, err := h.uploader.Upload(r.Context(), loc, fileName, content, header.Header.Get("Content-Type"))
	if err != nil {
		status := http.StatusInternalServerError
		if examfolders.IsInvalidLocation(err) || errors.Is(err, examfolders.ErrFileNameRequired) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{Key: key, URL: h.uploader.PublicURL(key)})
}

// DeleteFile removes the object named by the key query parameter
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing required 'key' parameter", http.StatusBadRequest)
		return
	}
	if examfolders.IsMarker(key) {
		http.Error(w, "Folder markers cannot be deleted individually", http.StatusBadRequest)
		return
	}

	if !h.uploader.Delete(r.Context(), key) {
		http.Error(w, "Failed to delete file", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPublicURL derives the public URL of a key
func (h *Handler) GetPublicURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing required 'key' parameter", http.StatusBadRequest)
		return
	}
	render.JSON(w, r, URLResponse{Key: key, URL: h.uploader.PublicURL(key)})
}

func locationFromQuery(w http.ResponseWriter, r *http.Request) (examfolders.Location, bool) {
	q := r.URL.Query()
	loc := examfolders.Location{
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Item:        q.Get("item"),
	}
	if err := loc.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return loc, false
	}
	return loc, true
}
