package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/pkg/validation"
)

// MaxUploadBytes bounds a single multipart file.
const MaxUploadBytes = 20 << 20

// NewValidator returns the shared validator ready to be assigned to echo.Echo.Validator.
func NewValidator() echo.Validator {
	return validation.New()
}

// bind decodes the request into req. Validation is left to the services so
// that input errors look the same whichever surface calls them.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return nil
}

// attachment reads an optional multipart file field.
func attachment(c echo.Context, field string) (*domain.Attachment, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid upload")
	}
	if fh.Size > MaxUploadBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid upload")
	}
	return &domain.Attachment{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
