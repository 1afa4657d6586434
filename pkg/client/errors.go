package client

import (
	"net/http"
	"sicakap/pkg/errors"
	"strings"
)

// exhaustionMarker is the word the registry uses when a date's range has no free numbers.
const exhaustionMarker = "habis"

func classify(operation string, resp *Response, err error) error {
	if err != nil {
		return errors.NetworkFailure(operation, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	msg := GetErrorMessage(resp)
	if resp.StatusCode == http.StatusUnauthorized {
		return errors.Unauthorized(msg)
	}
	return errors.Upstream(operation, resp.StatusCode, msg)
}

func isExhaustion(resp *Response) bool {
	return resp.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(GetErrorMessage(resp)), exhaustionMarker)
}
