package tiledclient

import (
	"errors"
	"fmt"
	"net/http"
)

// TiledError is the error body returned by the Tiled server.
type TiledError struct {
	Detail any `json:"detail"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode   int
	ResponseBody string
	TiledError   *TiledError
}

func (e *APIError) Error() string {
	if e.TiledError != nil {
		return fmt.Sprintf("tiled API error (status %d): %v", e.StatusCode, e.TiledError.Detail)
	}
	return fmt.Sprintf("tiled API error (status %d): %s", e.StatusCode, e.ResponseBody)
}

// IsNotFound reports whether err is a 404 from the Tiled server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
