package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"geocoding-etl/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPointService is a mock implementation of the PointService interface
type MockPointService struct {
	mock.Mock
}

func (m *MockPointService) ListPoints(ctx context.Context, limit int) ([]models.PointView, error) {
	args := m.Called(ctx, limit)
	points, _ := args.Get(0).([]models.PointView)
	return points, args.Error(1)
}

func TestPointsHandler_ListPoints(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		rawQuery       string
		callsService   bool
		limit          int
		mockPoints     []models.PointView
		mockError      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "invalid limit",
			rawQuery:       "limit=abc",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid limit, expected a non-negative integer"}`,
		},
		{
			name:           "negative limit",
			rawQuery:       "limit=-2",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid limit, expected a non-negative integer"}`,
		},
		{
			name:         "all points",
			callsService: true,
			limit:        0,
			mockPoints: []models.PointView{
				{
					Latitude: models.Float64Ptr(-22.9056),
					Suburb:   models.StringPtr("centro"),
					State:    models.StringPtr("sp"),
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody: `[{"latitude":-22.9056,"longitude":null,"street":null,"house_number":null,
				"suburb":"centro","city":null,"postal_code":null,"state":"sp","country":null}]`,
		},
		{
			name:           "limited and empty",
			rawQuery:       "limit=3",
			callsService:   true,
			limit:          3,
			mockPoints:     []models.PointView{},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name:           "service error",
			callsService:   true,
			mockError:      assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mockSvc := new(MockPointService)
			handler := NewPointsHandler(mockSvc)

			if tt.callsService {
				mockSvc.On("ListPoints", mock.Anything, tt.limit).Return(tt.mockPoints, tt.mockError)
			}

			// Create request
			req := httptest.NewRequest(http.MethodGet, "/points", nil)
			req.URL.RawQuery = tt.rawQuery
			w := httptest.NewRecorder()

			// Create Gin context
			c, _ := gin.CreateTestContext(w)
			c.Request = req

			// Execute
			handler.ListPoints(c)

			// Assert
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())

			mockSvc.AssertExpectations(t)
		})
	}
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockSvc := new(MockPointService)
	mockSvc.On("ListPoints", mock.Anything, 1).Return([]models.PointView{}, nil)

	router := NewRouter(NewPointsHandler(mockSvc), nil)

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{"/health", http.StatusOK},
		{"/points?limit=1", http.StatusOK},
		{"/reverse?lat=1&lon=1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
