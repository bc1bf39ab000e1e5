package upstream

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
)

// File is a locally selected image attached to a create or update call.
type File struct {
	Name    string
	Content []byte
}

// Form bundles scalar fields plus an optional image into one multipart
// submission. A nil Image contributes no file part, so an update without
// a newly selected file leaves the stored image untouched.
type Form struct {
	Fields map[string]string
	// ImageField names the file part; defaults to "image".
	ImageField string
	Image      *File
}

// Encode produces the multipart body and its Content-Type.
func (f Form) Encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range f.Fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	if f.Image != nil {
		field := f.ImageField
		if field == "" {
			field = "image"
		}
		part, err := w.CreateFormFile(field, f.Image.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Image.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// PreviewDataURI renders a selected file as a data URI so a preview can be
// shown before submission, without any product API round trip.
func PreviewDataURI(file File) string {
	mimeType := http.DetectContentType(file.Content)
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(file.Content)
}
