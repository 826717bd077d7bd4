package controllers

import (
	"errors"
	"io"
	"net/http"

	"greenreport-be/apperror"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError renders err as {"message": ...}. Internal causes are logged
// and never sent to the client.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(err)
	}
	if appErr.Code == apperror.CodeInternal {
		entry := log.WithFields(logrus.Fields{
			"path":      c.FullPath(),
			"requestId": c.GetString("request_id"),
		})
		if appErr.Cause != nil {
			entry = entry.WithError(appErr.Cause)
		}
		entry.Error("request failed")
	}
	c.JSON(appErr.HTTPStatus, gin.H{"message": appErr.Message})
}

// formImage reads an optional multipart image. A missing field yields nil.
func formImage(c *gin.Context, field string, maxBytes int64) ([]byte, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.InvalidArgument("Invalid multipart form")
	}
	if header.Size > maxBytes {
		return nil, apperror.InvalidArgument("Image is too large")
	}

	f, err := header.Open()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperror.InvalidArgument("Image is too large")
	}
	return data, nil
}
