package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/logger"
	"ambulance/pkg/middleware"
	"ambulance/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockContactService struct {
	createFunc func(ctx context.Context, actor model.Actor, contact *model.EmergencyContact) error
	updateFunc func(ctx context.Context, actor model.Actor, id string, updates *model.EmergencyContactUpdate) (*model.EmergencyContact, error)
	deleteFunc func(ctx context.Context, actor model.Actor, id string) error
}

func (m *mockContactService) Create(ctx context.Context, actor model.Actor, contact *model.EmergencyContact) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, contact)
	}
	return nil
}

func (m *mockContactService) List(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.EmergencyContact, int64, error) {
	return []*model.EmergencyContact{}, 0, nil
}

func (m *mockContactService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.EmergencyContact, error) {
	return nil, apperrors.NotFoundWithID("Emergency contact", id)
}

func (m *mockContactService) Update(ctx context.Context, actor model.Actor, id string, updates *model.EmergencyContactUpdate) (*model.EmergencyContact, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, actor, id, updates)
	}
	return &model.EmergencyContact{ID: id}, nil
}

func (m *mockContactService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, actor, id)
	}
	return nil
}

func newTestRouter(svc *mockContactService) http.Handler {
	router := httprouter.New()
	NewContactHandler(svc, logger.Discard()).RegisterRoutes(router)
	return middleware.ActorContext()(router)
}

func asUser(req *http.Request, id string) *http.Request {
	req.Header.Set(middleware.ActorIDHeader, id)
	req.Header.Set(middleware.ActorRoleHeader, string(model.RoleUser))
	return req
}

func TestCreate_ReturnsCreatedContact(t *testing.T) {
	router := newTestRouter(&mockContactService{
		createFunc: func(_ context.Context, actor model.Actor, c *model.EmergencyContact) error {
			c.ID = "c1"
			c.UserID = actor.ID
			return nil
		},
	})

	body := `{"name":"Budi","relationship":"sibling","phone":"+6281234567890","is_primary":true}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/contacts", strings.NewReader(body)), "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data model.EmergencyContact `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "c1", resp.Data.ID)
	assert.Equal(t, "user-1", resp.Data.UserID)
	assert.True(t, resp.Data.IsPrimary)
}

func TestCreate_WithoutActorIsForbidden(t *testing.T) {
	router := newTestRouter(&mockContactService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdate_ForwardsPartialBody(t *testing.T) {
	var gotID string
	var got *model.EmergencyContactUpdate
	router := newTestRouter(&mockContactService{
		updateFunc: func(_ context.Context, _ model.Actor, id string, u *model.EmergencyContactUpdate) (*model.EmergencyContact, error) {
			gotID, got = id, u
			return &model.EmergencyContact{ID: id, IsPrimary: true}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodPatch, "/api/v1/contacts/id/c7", strings.NewReader(`{"is_primary":true}`)), "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c7", gotID)
	require.NotNil(t, got)
	require.NotNil(t, got.IsPrimary)
	assert.True(t, *got.IsPrimary)
	assert.Nil(t, got.Address)
}

func TestGetByID_NotFound(t *testing.T) {
	router := newTestRouter(&mockContactService{})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/contacts/id/c9", nil), "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete_NoContent(t *testing.T) {
	var gotID string
	router := newTestRouter(&mockContactService{
		deleteFunc: func(_ context.Context, _ model.Actor, id string) error {
			gotID = id
			return nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/contacts/id/c3", nil), "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "c3", gotID)
}
