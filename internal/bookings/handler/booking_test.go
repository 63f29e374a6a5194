package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ambulance/internal/lifecycle"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/logger"
	"ambulance/pkg/middleware"
	"ambulance/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock service for testing
type mockBookingService struct {
	createFunc func(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error)
	listFunc   func(ctx context.Context, actor model.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	cancelFunc func(ctx context.Context, actor model.Actor, id string, reason string) (*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, req)
	}
	return &model.Booking{}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	return nil, apperrors.NotFoundWithID("Booking", id)
}

func (m *mockBookingService) GetByCode(ctx context.Context, actor model.Actor, code string) (*model.Booking, error) {
	return &model.Booking{BookingCode: code}, nil
}

func (m *mockBookingService) List(ctx context.Context, actor model.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, filter, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) AssignCrew(ctx context.Context, actor model.Actor, id string, assignment *model.CrewAssignment) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, actor model.Actor, id string, update *model.StatusUpdate) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, actor model.Actor, id string, reason string) (*model.Booking, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, actor, id, reason)
	}
	return nil, nil
}

func (m *mockBookingService) AdjustPrice(ctx context.Context, actor model.Actor, id string, adjustment *model.PriceAdjustment) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) Transition(ctx context.Context, id string, target model.BookingStatus, tc lifecycle.Context) (*model.Booking, error) {
	return nil, nil
}

func newTestRouter(svc *mockBookingService) http.Handler {
	router := httprouter.New()
	NewBookingHandler(svc, logger.Discard()).RegisterRoutes(router)
	return middleware.ActorContext()(router)
}

func asActor(req *http.Request, id string, role model.Role) *http.Request {
	req.Header.Set(middleware.ActorIDHeader, id)
	req.Header.Set(middleware.ActorRoleHeader, string(role))
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreate_RequiresActor(t *testing.T) {
	called := false
	router := newTestRouter(&mockBookingService{
		createFunc: func(context.Context, model.Actor, *model.BookingRequest) (*model.Booking, error) {
			called = true
			return &model.Booking{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"patient_name":"Siti"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.CodeForbidden, decodeError(t, w).Code)
	assert.False(t, called)
}

func TestCreate_PassesActorAndBody(t *testing.T) {
	var gotActor model.Actor
	var gotReq *model.BookingRequest
	router := newTestRouter(&mockBookingService{
		createFunc: func(_ context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error) {
			gotActor, gotReq = actor, req
			return &model.Booking{ID: "b1", BookingCode: "AMB20260315001", Status: model.StatusPending}, nil
		},
	})

	body := `{"patient_name":"Siti Aminah","pickup_address":"Jl. Merdeka 10","destination_address":"RSUD Kota","distance_km":4}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)), "user-1", model.RoleUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, model.Actor{ID: "user-1", Role: model.RoleUser}, gotActor)
	require.NotNil(t, gotReq)
	assert.Equal(t, "Siti Aminah", gotReq.PatientName)
	assert.Equal(t, 4.0, gotReq.DistanceKm)

	var resp struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AMB20260315001", resp.Data.BookingCode)
}

func TestCreate_RejectsUnknownFields(t *testing.T) {
	router := newTestRouter(&mockBookingService{})

	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"total_amount":1}`)), "user-1", model.RoleUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, decodeError(t, w).Code)
}

func TestGetAll_QueryParameters(t *testing.T) {
	var receivedLimit int
	var receivedOffset int64
	var receivedFilter model.BookingFilter
	router := newTestRouter(&mockBookingService{
		listFunc: func(_ context.Context, _ model.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
			receivedFilter, receivedLimit, receivedOffset = filter, limit, offset
			return []*model.Booking{{ID: "b1"}}, 41, nil
		},
	})

	tests := []struct {
		name           string
		queryString    string
		expectHTTPCode int
		expectLimit    int
		expectOffset   int64
		expectStatus   model.BookingStatus
	}{
		{name: "defaults", queryString: "", expectHTTPCode: http.StatusOK, expectLimit: 10, expectOffset: 0},
		{name: "explicit", queryString: "?limit=20&offset=40&status=pending", expectHTTPCode: http.StatusOK, expectLimit: 20, expectOffset: 40, expectStatus: model.StatusPending},
		{name: "clamped", queryString: "?limit=500&offset=-5", expectHTTPCode: http.StatusOK, expectLimit: 100, expectOffset: 0},
		{name: "invalid limit", queryString: "?limit=abc", expectHTTPCode: http.StatusBadRequest},
		{name: "invalid offset", queryString: "?offset=xyz", expectHTTPCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asActor(httptest.NewRequest(http.MethodGet, "/api/v1/bookings"+tt.queryString, nil), "admin-1", model.RoleAdmin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.expectHTTPCode, w.Code)
			if tt.expectHTTPCode != http.StatusOK {
				return
			}
			assert.Equal(t, tt.expectLimit, receivedLimit)
			assert.Equal(t, tt.expectOffset, receivedOffset)
			assert.Equal(t, tt.expectStatus, receivedFilter.Status)

			var resp struct {
				TotalCount int64 `json:"total_count"`
				Limit      int   `json:"limit"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, int64(41), resp.TotalCount)
			assert.Equal(t, tt.expectLimit, resp.Limit)
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	router := newTestRouter(&mockBookingService{})

	req := asActor(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/abc", nil), "admin-1", model.RoleAdmin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, decodeError(t, w).Code)
}

func TestCancel_ForwardsReason(t *testing.T) {
	var gotID, gotReason string
	router := newTestRouter(&mockBookingService{
		cancelFunc: func(_ context.Context, _ model.Actor, id string, reason string) (*model.Booking, error) {
			gotID, gotReason = id, reason
			return &model.Booking{ID: id, Status: model.StatusCancelled}, nil
		},
	})

	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/b9/cancel", strings.NewReader(`{"reason":"no longer needed"}`)), "user-1", model.RoleUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b9", gotID)
	assert.Equal(t, "no longer needed", gotReason)
}

func TestCancel_PropagatesValidationError(t *testing.T) {
	router := newTestRouter(&mockBookingService{
		cancelFunc: func(context.Context, model.Actor, string, string) (*model.Booking, error) {
			return nil, apperrors.Validation("Cancellation reason is required", nil)
		},
	})

	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/b9/cancel", strings.NewReader(`{"reason":""}`)), "user-1", model.RoleUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperrors.CodeValidation, decodeError(t, w).Code)
}
