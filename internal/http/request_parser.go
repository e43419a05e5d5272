// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing request bodies and query
// parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// maxBodyBytes caps a JSON request body.
const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// decodeJSON reads one JSON value from the request body into dst.
// Amount and date errors keep their sentinel so they map to 422; every
// other decoding failure is reported as a malformed body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrInvalidDate) {
			return err
		}
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body exceeds %d bytes", errMalformedBody, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errMalformedBody)
		default:
			return fmt.Errorf("%w: %v", errMalformedBody, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", errMalformedBody)
	}
	return nil
}

// queryInt returns the integer query parameter or def when absent or invalid.
func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// pathID returns the trimmed path wildcard.
func pathID(r *http.Request, name string) string {
	return strings.TrimSpace(r.PathValue(name))
}
