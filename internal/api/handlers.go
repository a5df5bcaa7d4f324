package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"multimind.ai/server/internal/auth"
	"multimind.ai/server/internal/core"
	"multimind.ai/server/internal/media"
	"multimind.ai/server/internal/store"
)

const defaultMaxUploadBytes = 20 << 20

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Verifier       *auth.Verifier
	Resolver       *core.EntitlementResolver
	Gateway        *core.Gateway
	Likes          *core.LikeService
	Feed           *core.FeedService
	Creations      *core.CreationService
	DB             Pinger
	MaxUploadBytes int64
	// Env reports which integrations are configured on the root endpoint.
	Env map[string]bool
}

type APIHandler struct {
	verifier       *auth.Verifier
	resolver       *core.EntitlementResolver
	gateway        *core.Gateway
	likes          *core.LikeService
	feed           *core.FeedService
	creations      *core.CreationService
	db             Pinger
	maxUploadBytes int64
	env            map[string]bool
}

func NewAPIHandler(opts Options) *APIHandler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &APIHandler{
		verifier:       opts.Verifier,
		resolver:       opts.Resolver,
		gateway:        opts.Gateway,
		likes:          opts.Likes,
		feed:           opts.Feed,
		creations:      opts.Creations,
		db:             opts.DB,
		maxUploadBytes: opts.MaxUploadBytes,
		env:            opts.Env,
	}
}

func (h *APIHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Server is Live!",
		"env":     h.env,
	})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "healthy"})
}

func (h *APIHandler) APIIndexHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "API is running"})
}

func (h *APIHandler) GenerateArticleHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var req core.ArticleRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creation, err := h.gateway.GenerateArticle(r.Context(), caller, req)
	h.writeCreation(w, r, creation, err)
}

func (h *APIHandler) GenerateBlogTitleHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var req core.BlogTitleRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creation, err := h.gateway.GenerateBlogTitle(r.Context(), caller, req)
	h.writeCreation(w, r, creation, err)
}

func (h *APIHandler) GenerateImageHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var req core.ImageRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creation, err := h.gateway.GenerateImage(r.Context(), caller, req)
	h.writeCreation(w, r, creation, err)
}

func (h *APIHandler) RemoveImageBackgroundHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	img, _, err := h.readUpload(w, r, "image")
	if err != nil {
		handleErr(w, r, err)
		return
	}

	creation, err := h.gateway.RemoveBackground(r.Context(), caller, core.BackgroundRemovalRequest{Image: img})
	h.writeCreation(w, r, creation, err)
}

func (h *APIHandler) RemoveImageObjectHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	img, _, err := h.readUpload(w, r, "image")
	if err != nil {
		handleErr(w, r, err)
		return
	}

	creation, err := h.gateway.RemoveObject(r.Context(), caller, core.ObjectRemovalRequest{
		Image:  img,
		Object: r.FormValue("object"),
	})
	h.writeCreation(w, r, creation, err)
}

func (h *APIHandler) ResumeReviewHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	doc, size, err := h.readUpload(w, r, "resume")
	if isBodyTooLarge(err) {
		err = core.NewServiceError(err, http.StatusBadRequest, core.MsgResumeTooLarge)
	}
	if err != nil {
		handleErr(w, r, err)
		return
	}

	creation, err := h.gateway.ReviewResume(r.Context(), caller, core.ResumeReviewRequest{
		Document: doc.Data,
		Size:     size,
	})
	h.writeCreation(w, r, creation, err)
}

func (h *APIHandler) PublishedImagesHandler(w http.ResponseWriter, r *http.Request) {
	var viewerID string
	if id, ok := auth.FromContext(r.Context()); ok {
		viewerID = id.UserID
	}

	images, err := h.feed.PublishedImages(r.Context(), viewerID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "images": images})
}

type toggleLikeRequest struct {
	CreationID int64 `json:"creationId"`
}

type toggleLikeResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	IsLiked   bool   `json:"isLiked"`
	LikeCount int64  `json:"likeCount"`
}

func (h *APIHandler) ToggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req toggleLikeRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := h.likes.Toggle(r.Context(), id.UserID, req.CreationID)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	msg := "Creation unliked"
	if state.Liked {
		msg = "Creation liked"
	}
	writeJSON(w, http.StatusOK, toggleLikeResponse{
		Success:   true,
		Message:   msg,
		IsLiked:   state.Liked,
		LikeCount: state.LikeCount,
	})
}

func (h *APIHandler) UserCreationsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	renderHTML := r.URL.Query().Get("render") == "html"
	creations, err := h.creations.ListForUser(r.Context(), caller.UserID(), renderHTML)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "creations": creations})
}

func (h *APIHandler) requireCaller(w http.ResponseWriter, r *http.Request) (core.Caller, bool) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "Unauthorized")
	}
	return caller, ok
}

func (h *APIHandler) writeCreation(w http.ResponseWriter, r *http.Request, creation *store.Creation, err error) {
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contentResponse{Success: true, Content: creation.Content})
}

// readUpload reads one multipart file under the request body cap.
func (h *APIHandler) readUpload(w http.ResponseWriter, r *http.Request, field string) (media.Image, int64, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if isBodyTooLarge(err) {
			return media.Image{}, 0, core.NewServiceError(err, http.StatusBadRequest, "Upload exceeds the maximum allowed size.")
		}
		return media.Image{}, 0, core.NewServiceError(err, http.StatusBadRequest, "Invalid multipart form")
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return media.Image{}, 0, nil
	}
	if err != nil {
		return media.Image{}, 0, core.NewServiceError(err, http.StatusBadRequest, "Invalid %s file", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.Image{}, 0, core.NewServiceError(err, http.StatusBadRequest, "Failed to read %s file", field)
	}

	return media.Image{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, header.Size, nil
}

// isBodyTooLarge reports whether err came from the MaxBytesReader limit.
// multipart parsing does not always keep the typed error in the chain.
func isBodyTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
