package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"rentals/server/internal/booking"
	"rentals/server/internal/chat"
	"rentals/server/internal/database"
	"rentals/server/internal/dates"
	"rentals/server/internal/favorite"
	"rentals/server/internal/listing"
	"rentals/server/internal/models"
	"rentals/server/internal/review"
	"rentals/server/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hostID   uint = 1
	tenantID uint = 2
	adminID  uint = 3
)

type testServer struct {
	router *gin.Engine
	db     *database.Database
}

type stubJobs struct {
	ran []scheduler.JobType
}

func (s *stubJobs) RunNow(ctx context.Context, job scheduler.JobType) (int, error) {
	s.ran = append(s.ran, job)
	return 2, nil
}

func setupServer(t *testing.T, jobs JobRunner) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	services := Services{
		Listings:  listing.NewService(db, nil, nil, logger),
		Bookings:  booking.NewService(db, nil, booking.Options{MaxRetries: 3, RetryDelay: time.Millisecond}, logger),
		Chats:     chat.NewService(db, chat.NewMemoryTypingStore(100, time.Second), logger),
		Reviews:   review.NewService(db, nil, logger),
		Favorites: favorite.NewService(db, logger),
	}
	if jobs != nil {
		services.Jobs = jobs
	}
	handler := NewHandler(db, services, logger)
	router, err := NewRouter(handler, []string{"*"}, logger)
	require.NoError(t, err)
	return &testServer{router: router, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, user uint, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set(HeaderUserID, strconv.FormatUint(uint64(user), 10))
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) apartment(t *testing.T) *models.Apartment {
	t.Helper()
	apt := &models.Apartment{
		HostID: hostID, Title: "Canal view loft", City: "Amsterdam", CitySlug: "amsterdam",
		BasePrice: 1000, MinStay: 1, MaxGuests: 4, Rooms: 2,
		Status: models.ListingApproved, IsPublished: true,
	}
	require.NoError(t, s.db.CreateApartment(context.Background(), apt))
	return apt
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
	return body.Error
}

// futureDay returns a date far enough ahead that it is never in the past.
func futureDay(offset int) string {
	return dates.Key(dates.Today(time.Now()).AddDate(0, 0, 60+offset))
}

func TestHealth(t *testing.T) {
	srv := setupServer(t, nil)
	resp := srv.do(t, http.MethodGet, "/api/health", 0, "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
}

func TestCities(t *testing.T) {
	srv := setupServer(t, nil)

	resp := srv.do(t, http.MethodGet, "/api/cities", 0, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var cities []cityResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &cities))
	assert.NotEmpty(t, cities)

	resp = srv.do(t, http.MethodGet, "/api/cities/amsterdam", 0, "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/cities/atlantis", 0, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, resp))
}

func TestIdentity(t *testing.T) {
	srv := setupServer(t, nil)

	resp := srv.do(t, http.MethodGet, "/api/bookings", 0, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, resp))

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set(HeaderUserID, "abc")
	bad := httptest.NewRecorder()
	srv.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	resp = srv.do(t, http.MethodGet, "/api/admin/listings", tenantID, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/admin/listings", adminID, RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBookingFlow(t *testing.T) {
	srv := setupServer(t, nil)
	apt := srv.apartment(t)
	bookingsPath := "/api/listings/" + strconv.Itoa(int(apt.ID)) + "/bookings"

	resp := srv.do(t, http.MethodPost, bookingsPath, tenantID, "", gin.H{
		"check_in": futureDay(0), "check_out": futureDay(3), "guests": 2,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created models.Booking
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, models.BookingPending, created.Status)
	assert.Equal(t, int64(3000), created.TotalPrice)

	// overlapping stay
	resp = srv.do(t, http.MethodPost, bookingsPath, tenantID, "", gin.H{
		"check_in": futureDay(2), "check_out": futureDay(4),
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, resp))

	// check-out day of the first stay is free
	resp = srv.do(t, http.MethodPost, bookingsPath, tenantID, "", gin.H{
		"check_in": futureDay(3), "check_out": futureDay(5),
	})
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/listings/"+strconv.Itoa(int(apt.ID))+"/availability?check_in="+futureDay(1)+"&check_out="+futureDay(2), 0, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var report booking.Report
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	assert.False(t, report.Available)
	assert.Len(t, report.BookedDates, 5)

	confirmPath := "/api/bookings/" + strconv.Itoa(int(created.ID)) + "/confirm"
	resp = srv.do(t, http.MethodPost, confirmPath, tenantID, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = srv.do(t, http.MethodPost, confirmPath, hostID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/host/bookings?status=CONFIRMED", hostID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var confirmed []models.Booking
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &confirmed))
	require.Len(t, confirmed, 1)
	assert.Equal(t, created.ID, confirmed[0].ID)
}

func TestBookingValidation(t *testing.T) {
	srv := setupServer(t, nil)
	apt := srv.apartment(t)
	bookingsPath := "/api/listings/" + strconv.Itoa(int(apt.ID)) + "/bookings"

	tests := []struct {
		name   string
		path   string
		body   gin.H
		status int
	}{
		{"malformed date", bookingsPath, gin.H{"check_in": "01/02/2026", "check_out": futureDay(2)}, http.StatusBadRequest},
		{"missing check-out", bookingsPath, gin.H{"check_in": futureDay(0)}, http.StatusBadRequest},
		{"empty range", bookingsPath, gin.H{"check_in": futureDay(2), "check_out": futureDay(2)}, http.StatusBadRequest},
		{"reversed range", bookingsPath, gin.H{"check_in": futureDay(3), "check_out": futureDay(1)}, http.StatusBadRequest},
		{"unknown apartment", "/api/listings/9999/bookings", gin.H{"check_in": futureDay(0), "check_out": futureDay(1)}, http.StatusNotFound},
		{"bad id", "/api/listings/abc/bookings", gin.H{"check_in": futureDay(0), "check_out": futureDay(1)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodPost, tt.path, tenantID, "", tt.body)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
		})
	}
}

func TestSearchListings(t *testing.T) {
	srv := setupServer(t, nil)
	srv.apartment(t)

	resp := srv.do(t, http.MethodGet, "/api/listings?city=Amsterdam&guests=2", 0, "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var page listing.Page
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	resp = srv.do(t, http.MethodGet, "/api/listings?lat=52.37", 0, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMapListings(t *testing.T) {
	srv := setupServer(t, nil)
	located := srv.apartment(t)
	located.SetPoint(orb.Point{4.89, 52.37})
	require.NoError(t, srv.db.SaveApartment(context.Background(), located))
	srv.apartment(t)

	resp := srv.do(t, http.MethodGet, "/api/listings/map?city=Amsterdam", 0, "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	fc, err := geojson.UnmarshalFeatureCollection(resp.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, orb.Point{4.89, 52.37}, fc.Features[0].Point())
}

func TestListingModeration(t *testing.T) {
	srv := setupServer(t, nil)

	resp := srv.do(t, http.MethodPost, "/api/listings", hostID, "", gin.H{
		"title": "Garden studio", "city": "Utrecht", "base_price": 800,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var apt models.Apartment
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apt))
	assert.Equal(t, models.ListingPending, apt.Status)

	path := "/api/listings/" + strconv.Itoa(int(apt.ID))
	resp = srv.do(t, http.MethodGet, path, 0, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = srv.do(t, http.MethodPost, "/api/admin"+path+"/moderate", adminID, RoleAdmin, gin.H{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = srv.do(t, http.MethodGet, path, 0, "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestChatEndpoints(t *testing.T) {
	srv := setupServer(t, nil)
	apt := srv.apartment(t)

	resp := srv.do(t, http.MethodPost, "/api/chats", tenantID, "", gin.H{"apartment_id": apt.ID})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var c models.Chat
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &c))

	messages := "/api/chats/" + strconv.Itoa(int(c.ID)) + "/messages"
	resp = srv.do(t, http.MethodPost, messages, tenantID, "", gin.H{"content": "Is parking available?"})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/chats/unread", hostID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"unread":1}`, resp.Body.String())

	resp = srv.do(t, http.MethodGet, messages, hostID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/chats/unread", hostID, "", nil)
	assert.JSONEq(t, `{"unread":0}`, resp.Body.String())

	resp = srv.do(t, http.MethodGet, messages, 99, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRunJob(t *testing.T) {
	srv := setupServer(t, nil)
	resp := srv.do(t, http.MethodPost, "/api/admin/jobs/expire_pending", adminID, RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	jobs := &stubJobs{}
	srv = setupServer(t, jobs)
	resp = srv.do(t, http.MethodPost, "/api/admin/jobs/complete_stays", adminID, RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []scheduler.JobType{scheduler.JobTypeCompleteStays}, jobs.ran)

	resp = srv.do(t, http.MethodPost, "/api/admin/jobs/reindex", adminID, RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
