package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// UploadField is the multipart field carrying an uploaded file.
const UploadField = "file"

// ReadUpload reads the multipart file in field, refusing bodies larger than
// maxBytes. The returned name is the client supplied file name.
func ReadUpload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", NewValidationError(map[string]string{field: "file is too large"})
		}
		return nil, "", fmt.Errorf("%w: malformed multipart body: %v", ErrValidation, err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", NewValidationError(map[string]string{field: "is required"})
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read upload: %v", ErrValidation, err)
	}
	return data, header.Filename, nil
}
