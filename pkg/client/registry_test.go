package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sicakap/pkg/errors"
	"sicakap/pkg/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, handler http.HandlerFunc) *RegistryClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewRegistryClient(NewHttpClient(server.URL, time.Second))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestRegistryClient_Book(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       any
		wantNumber int
		wantStatus model.BookStatus
		wantCode   string
	}{
		{
			name:       "new number",
			status:     http.StatusOK,
			body:       map[string]any{"reg_number": 601, "status": "new"},
			wantNumber: 601,
			wantStatus: model.BookStatusNew,
		},
		{
			name:       "existing booking is returned again",
			status:     http.StatusOK,
			body:       map[string]any{"reg_number": 604, "status": "existing"},
			wantNumber: 604,
			wantStatus: model.BookStatusExisting,
		},
		{
			name:     "exhausted range",
			status:   http.StatusBadRequest,
			body:     map[string]any{"error": "Nomor registrasi sudah habis untuk tanggal 2025-08-10."},
			wantCode: errors.CodeAllocationExhausted,
		},
		{
			name:     "success without a number",
			status:   http.StatusOK,
			body:     map[string]any{"error": "tidak tersedia"},
			wantCode: errors.CodeAllocationExhausted,
		},
		{
			name:     "other bad request",
			status:   http.StatusBadRequest,
			body:     map[string]any{"error": "format salah"},
			wantCode: errors.CodeUpstream,
		},
		{
			name:     "not logged in",
			status:   http.StatusUnauthorized,
			body:     map[string]any{"error": "Login required"},
			wantCode: errors.CodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/book-reg-number", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				writeJSON(w, tt.status, tt.body)
			})

			result, err := c.Book(context.Background())
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNumber, result.RegNumber)
			assert.Equal(t, tt.wantStatus, result.Status)
		})
	}
}

func TestRegistryClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewRegistryClient(NewHttpClient(url, 200*time.Millisecond))
	err := c.Release(context.Background(), 601)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNetworkFailure))
	assert.True(t, errors.Retryable(err))
}

func TestRegistryClient_ReleaseSendsNumber(t *testing.T) {
	var got model.RegNumberRequest
	c := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/release-reg-number", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"message": "Number released successfully"})
	})

	require.NoError(t, c.Release(context.Background(), 612))
	assert.Equal(t, 612, got.RegNumber)
}

func TestRegistryClient_SwitchDate(t *testing.T) {
	c := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		var req model.SwitchDateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, map[string]any{
			"message":       "ok",
			"current_date":  req.Date,
			"previous_date": "2025-08-10",
		})
	})

	result, err := c.SwitchDate(context.Background(), "2025-08-11")
	require.NoError(t, err)
	assert.Equal(t, model.SystemDate("2025-08-11"), result.CurrentDate)
	assert.Equal(t, model.SystemDate("2025-08-10"), result.PreviousDate)
}

func TestRegistryClient_Settings(t *testing.T) {
	c := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.RegistrationRange{
			StartNumber:      601,
			EndNumber:        700,
			CurrentNumber:    695,
			RemainingNumbers: 6,
			CurrentDate:      "2025-08-10",
		})
	})

	rng, err := c.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 601, rng.StartNumber)
	assert.Equal(t, model.RangeAlmostExhausted, rng.Health())
}

func TestGetErrorMessage_ListOfErrors(t *testing.T) {
	resp := &Response{
		Response: &http.Response{StatusCode: http.StatusBadRequest},
		Body:     []byte(`{"error":["NIK wajib diisi","Nama wajib diisi"]}`),
	}
	assert.Equal(t, "[NIK wajib diisi Nama wajib diisi]", GetErrorMessage(resp))
}
