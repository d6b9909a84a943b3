package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"storefront/internal/domain/products"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// sniffMIME reads the first 512 bytes to detect the real content type and
// resets the reader. The client-supplied Content-Type header is not trusted.
func sniffMIME(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read: %w", err)
	}
	mime := http.DetectContentType(buf[:n])

	if seeker, ok := file.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek reset: %w", err)
		}
	}
	return mime, nil
}

func (app *application) uploadToCloudinaryWithID(file io.Reader, publicID string) (string, error) {
	resp, err := app.cld.Upload.Upload(
		context.Background(),
		file,
		uploader.UploadParams{PublicID: publicID},
	)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return resp.SecureURL, nil
}

// uploadProductThumbnailHandler godoc
//
//	@Summary	Upload a product thumbnail
//	@Tags		products
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		productID	path		int		true	"Product ID"
//	@Param		thumbnail	formData	file	true	"Image file"
//	@Success	200			{object}	map[string]string
//	@Failure	400			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{productID}/thumbnail [post]
func (app *application) uploadProductThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	const maxBytes = 3 * 1024 * 1024 // 3MB
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("failed to parse form: %w", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	id, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	file, _, err := r.FormFile("thumbnail")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("thumbnail file is required"))
		return
	}
	defer file.Close()

	mime, err := sniffMIME(file)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("sniff mime: %w", err))
		return
	}
	allowed := map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	}
	if !allowed[mime] {
		app.badRequestResponse(w, r, fmt.Errorf("invalid image type: %s", mime))
		return
	}

	publicID := fmt.Sprintf("products/%d_thumb_%d", id, time.Now().UnixNano())
	url, err := app.uploadToCloudinaryWithID(file, publicID)
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("upload thumbnail: %w", err))
		return
	}

	if err := app.store.Products.SetThumbnail(r.Context(), id, url); err != nil {
		switch {
		case errors.Is(err, products.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"thumbnail": url}); err != nil {
		app.internalServerError(w, r, err)
	}
}
