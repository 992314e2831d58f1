package httpapp

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/alphabot-ai/confessional/internal/admission"
	"github.com/alphabot-ai/confessional/internal/imagestore"
	"github.com/alphabot-ai/confessional/internal/validation"
)

// formOverhead leaves room for text fields next to a maximum-size image.
const formOverhead = 1 << 20

type createMessageRequest struct {
	Text        string `json:"text"`
	Message     string `json:"message"`
	Category    string `json:"category" validate:"max=64"`
	DisplayName string `json:"display_name" validate:"max=256"`
	Avatar      string `json:"avatar" validate:"max=64"`
	ImageURL    string `json:"image_url" validate:"max=2048"`
}

func (req createMessageRequest) submission() admission.Submission {
	text := req.Text
	if strings.TrimSpace(text) == "" {
		text = req.Message
	}
	return admission.Submission{
		Text:        text,
		Category:    req.Category,
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
		ImageURL:    req.ImageURL,
	}
}

// readSubmission accepts multipart, urlencoded and JSON bodies. Upload size
// and type checks happen here, before the admission pipeline sees anything.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (admission.Submission, error) {
	var (
		req    createMessageRequest
		upload *imagestore.Upload
	)
	switch mediaType(r.Header.Get("Content-Type")) {
	case "application/json":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := readJSON(r.Body, &req); err != nil {
			return admission.Submission{}, bodyError(err)
		}
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes+formOverhead)
		if err := r.ParseMultipartForm(s.cfg.Upload.MaxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return admission.Submission{}, s.imageTooLarge()
			}
			return admission.Submission{}, bodyError(err)
		}
		defer r.MultipartForm.RemoveAll()
		req = formRequest(r)

		file, header, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return admission.Submission{}, badRequest("invalid image upload")
		default:
			defer file.Close()
			upload, err = s.readUpload(file, header)
			if err != nil {
				return admission.Submission{}, err
			}
		}
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return admission.Submission{}, bodyError(err)
		}
		req = formRequest(r)
	}

	if err := validation.ValidateStruct(req); err != nil {
		return admission.Submission{}, err
	}
	sub := req.submission()
	sub.Image = upload
	return sub, nil
}

func formRequest(r *http.Request) createMessageRequest {
	return createMessageRequest{
		Text:        r.FormValue("text"),
		Message:     r.FormValue("message"),
		Category:    r.FormValue("category"),
		DisplayName: r.FormValue("display_name"),
		Avatar:      r.FormValue("avatar"),
		ImageURL:    r.FormValue("image_url"),
	}
}

func (s *Server) imageTooLarge() error {
	return badRequest(fmt.Sprintf("Image must be at most %d MiB", s.cfg.Upload.MaxBytes>>20))
}

// readUpload enforces the size limit and checks both the declared and the
// sniffed content type against the allowed set. An empty file part is
// treated as no upload.
func (s *Server) readUpload(file multipart.File, header *multipart.FileHeader) (*imagestore.Upload, error) {
	limit := s.cfg.Upload.MaxBytes
	tooLarge := s.imageTooLarge()
	if header.Size > limit {
		return nil, tooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, badRequest("invalid image upload")
	}
	if int64(len(data)) > limit {
		return nil, tooLarge
	}
	if len(data) == 0 {
		return nil, nil
	}

	badType := badRequest("Only " + s.allowedTypeNames() + " images are allowed")
	declared := mediaType(header.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" && !s.typeAllowed(declared) {
		return nil, badType
	}
	sniffed := mimetype.Detect(data)
	mt := ""
	for _, allowed := range s.cfg.Upload.AllowedTypes {
		if sniffed.Is(allowed) {
			mt = sniffed.String()
			break
		}
	}
	if mt == "" {
		return nil, badType
	}
	return &imagestore.Upload{Data: data, MIME: mt, Filename: header.Filename}, nil
}

func (s *Server) typeAllowed(mt string) bool {
	for _, allowed := range s.cfg.Upload.AllowedTypes {
		if strings.EqualFold(mt, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) allowedTypeNames() string {
	seen := map[string]bool{}
	var names []string
	for _, t := range s.cfg.Upload.AllowedTypes {
		name := strings.ToUpper(strings.TrimPrefix(t, "image/"))
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
