package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"ciq-assistant/internal/service"
	"ciq-assistant/internal/service/mocks"
)

func TestConfirmHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       any
		mockSetup  func(*mocks.MockSchemaService)
		wantStatus int
		want       *ConfirmResponse
		wantCode   string
	}{
		{
			name:   "committed",
			method: http.MethodPost,
			body:   ConfirmRequest{RequestID: "req-1", Decision: "yes"},
			mockSetup: func(m *mocks.MockSchemaService) {
				m.EXPECT().Confirm(gomock.Any(), "req-1", "yes").Return(&service.ConfirmResult{
					Status:       service.StatusUpdated,
					Message:      "Standard CIQ template updated.",
					AddedColumns: []string{"Region"},
				}, nil)
			},
			wantStatus: http.StatusOK,
			want: &ConfirmResponse{
				Status:       "updated",
				Message:      "Standard CIQ template updated.",
				AddedColumns: []string{"Region"},
			},
		},
		{
			name:   "skipped",
			method: http.MethodPost,
			body:   ConfirmRequest{RequestID: "req-1", Decision: "no"},
			mockSetup: func(m *mocks.MockSchemaService) {
				m.EXPECT().Confirm(gomock.Any(), "req-1", "no").Return(&service.ConfirmResult{
					Status:  service.StatusSkipped,
					Message: "Update skipped as per user decision.",
				}, nil)
			},
			wantStatus: http.StatusOK,
			want: &ConfirmResponse{
				Status:       "skipped",
				Message:      "Update skipped as per user decision.",
				AddedColumns: []string{},
			},
		},
		{
			name:   "unknown request id",
			method: http.MethodPost,
			body:   ConfirmRequest{RequestID: "nope", Decision: "yes"},
			mockSetup: func(m *mocks.MockSchemaService) {
				m.EXPECT().Confirm(gomock.Any(), "nope", "yes").Return(nil, service.ErrInvalidRequestID)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidRequestID,
		},
		{
			name:   "commit failure",
			method: http.MethodPost,
			body:   ConfirmRequest{RequestID: "req-1", Decision: "yes"},
			mockSetup: func(m *mocks.MockSchemaService) {
				m.EXPECT().Confirm(gomock.Any(), "req-1", "yes").Return(nil, errors.New("disk full"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   codeInternal,
		},
		{
			name:       "invalid JSON body",
			method:     http.MethodPost,
			body:       "invalid json",
			mockSetup:  func(m *mocks.MockSchemaService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidInput,
		},
		{
			name:       "method not allowed",
			method:     http.MethodGet,
			mockSetup:  func(m *mocks.MockSchemaService) {},
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   codeMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockSchemaService(ctrl)
			tt.mockSetup(svc)

			w := httptest.NewRecorder()
			NewConfirmHandler(svc).ServeHTTP(w, jsonRequest(t, tt.method, "/confirm-update", tt.body))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.want != nil {
				var got ConfirmResponse
				if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
					t.Fatal(err)
				}
				if got.Status != tt.want.Status || got.Message != tt.want.Message ||
					len(got.AddedColumns) != len(tt.want.AddedColumns) {
					t.Errorf("response = %+v, want %+v", got, tt.want)
				}
				if got.AddedColumns == nil {
					t.Error("added_columns should be an array, not null")
				}
			}
			if tt.wantCode != "" {
				if resp := decodeError(t, w); resp.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
				}
			}
		})
	}
}
