package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sicakap/pkg/config"
	apperrors "sicakap/pkg/errors"
	"strconv"

	"github.com/julienschmidt/httprouter"
)

func ExtractPage(r *http.Request) (int, int, error) {
	query := r.URL.Query()

	page := 1
	if s := query.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return 0, 0, apperrors.InvalidInput("invalid page parameter: " + s)
		}
		page = v
	}

	perPage := 0
	if s := query.Get("per_page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid per_page parameter: " + s)
		}
		perPage = v
	}

	return page, config.NormalizePaginationLimit(perPage), nil
}

func ExtractID(ps httprouter.Params) (int, error) {
	raw := ps.ByName("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput("invalid id parameter: " + raw)
	}
	return id, nil
}

// DecodeJSON reads the request body into dst. An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.InvalidInput("Invalid request body")
	}
	return nil
}
