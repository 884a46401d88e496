package web

import (
	"embed"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
)

//go:embed static
var static embed.FS

func UploadView(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderUpload(w, r, views.UploadData{}, 0)
	}
}

// Upload sends the submitted file to the media store and shows the link to use in articles.
func Upload(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(MaxMemory); err != nil {
			log.Warn().Err(err).Msg("failed to read multipart form from request")
			h.renderUpload(w, r, views.UploadData{Errors: views.FieldErrors{"file": "could not be read"}}, http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			h.renderUpload(w, r, views.UploadData{Errors: views.FieldErrors{"file": "is required"}}, http.StatusUnprocessableEntity)
			return
		}
		defer file.Close()

		m, err := h.service.UploadMedia(r.Context(), header.Filename, file)
		if err != nil {
			h.mutationError(w, r, err, "Upload failed.", "/media/upload")
			return
		}
		log.Info().Str("filename", m.OriginalFilename).Int64("size", m.FileSize).Msg("file uploaded")
		h.renderUpload(w, r, views.UploadData{Media: &m}, 0)
	}
}

func (h *Handler) renderUpload(w http.ResponseWriter, r *http.Request, data views.UploadData, status int) {
	h.render(w, r, page{
		title:  "File upload",
		place:  views.PlaceUpload,
		status: status,
		child:  views.Upload(data),
	})
}
