package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testAdminToken = "secret-token"
	hirerID        = int64(1)
	companionID    = int64(100)
)

type testEnv struct {
	bookings *mockBookings
	reviews  *mockReviews
	strikes  *mockStrikes
	fees     *mockFees
	router   http.Handler
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		bookings: &mockBookings{},
		reviews:  &mockReviews{},
		strikes:  &mockStrikes{},
		fees:     &mockFees{},
	}
	h := NewHandler(env.bookings, env.reviews, env.strikes, env.fees, zap.NewNop())
	env.router = NewRouter(gin.TestMode, h, testAdminToken, time.Second, zap.NewNop())

	t.Cleanup(func() {
		env.bookings.AssertExpectations(t)
		env.reviews.AssertExpectations(t)
		env.strikes.AssertExpectations(t)
		env.fees.AssertExpectations(t)
	})
	return env
}

func (e *testEnv) do(method, path string, actor int64, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != 0 {
		req.Header.Set(ActorHeader, strconv.FormatInt(actor, 10))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) admin(method, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireActor(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodGet, "/api/v1/bookings", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set(ActorHeader, "abc")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- Bookings ---

func TestCreateBooking_Success(t *testing.T) {
	env := setupRouter(t)

	start := time.Date(2026, 6, 2, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	booking := &model.Booking{
		ID:          uuid.New(),
		HirerID:     hirerID,
		CompanionID: companionID,
		Status:      model.BookingStatusPending,
		StartTime:   start,
		EndTime:     end,
		TotalPrice:  1180000,
	}

	env.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(in service.CreateBookingInput) bool {
		return in.HirerID == hirerID && in.CompanionID == companionID &&
			in.StartTime.Equal(start) && in.EndTime.Equal(end)
	})).Return(booking, nil).Once()

	w := env.do(http.MethodPost, "/api/v1/bookings", hirerID, CreateBookingRequest{
		CompanionID: companionID,
		StartTime:   start,
		EndTime:     end,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, booking.ID, resp.ID)
	assert.Equal(t, int64(1180000), resp.TotalPrice)
	assert.Equal(t, model.BookingStatusPending, resp.Status)
}

func TestCreateBooking_BadRequest(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodPost, "/api/v1/bookings", hirerID, []byte(`{"companion_id":100}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/v1/bookings", hirerID, []byte(`{"companion_id":100,"start_time":"tomorrow","end_time":"later"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBooking_ErrorMapping(t *testing.T) {
	conflictID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "overlap",
			err:        model.Conflict("companion is already booked").With("conflicting_booking_id", conflictID.String()),
			wantStatus: http.StatusConflict,
			wantKind:   string(model.KindConflict),
		},
		{
			name:       "limits",
			err:        model.PolicyViolation("daily booking limit reached"),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   string(model.KindPolicyViolation),
		},
		{
			name:       "validation",
			err:        model.Validation("duration must be between 1 and 8 hours"),
			wantStatus: http.StatusBadRequest,
			wantKind:   string(model.KindValidation),
		},
		{
			name:       "companion missing",
			err:        model.NotFound("companion not found"),
			wantStatus: http.StatusNotFound,
			wantKind:   string(model.KindNotFound),
		},
		{
			name:       "store unavailable",
			err:        model.Unavailable(errors.New("serialization failure"), "try again later"),
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   string(model.KindUnavailable),
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupRouter(t)
			env.bookings.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			start := time.Date(2026, 6, 2, 18, 0, 0, 0, time.UTC)
			w := env.do(http.MethodPost, "/api/v1/bookings", hirerID, CreateBookingRequest{
				CompanionID: companionID,
				StartTime:   start,
				EndTime:     start.Add(time.Hour),
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantKind, resp.Kind)
			if tt.name == "overlap" {
				assert.Equal(t, conflictID.String(), resp.Details["conflicting_booking_id"])
			}
			if tt.name == "unknown" {
				assert.Equal(t, "internal server error", resp.Error)
			}
		})
	}
}

func TestGetBooking(t *testing.T) {
	env := setupRouter(t)

	id := uuid.New()
	env.bookings.On("GetBooking", mock.Anything, id, hirerID).
		Return(&model.Booking{ID: id, HirerID: hirerID}, nil).Once()

	w := env.do(http.MethodGet, "/api/v1/bookings/"+id.String(), hirerID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/bookings/not-a-uuid", hirerID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBooking_Forbidden(t *testing.T) {
	env := setupRouter(t)

	id := uuid.New()
	env.bookings.On("GetBooking", mock.Anything, id, int64(999)).
		Return(nil, model.Forbidden("not a participant")).Once()

	w := env.do(http.MethodGet, "/api/v1/bookings/"+id.String(), 999, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListBookings(t *testing.T) {
	env := setupRouter(t)

	env.bookings.On("ListBookings", mock.Anything, hirerID).
		Return([]*model.Booking{{ID: uuid.New()}, {ID: uuid.New()}}, nil).Once()

	w := env.do(http.MethodGet, "/api/v1/bookings", hirerID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestBookingTransitions(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		path   string
		actor  int64
		body   any
		method string
		args   []any
	}{
		{path: "confirm", actor: companionID, method: "ConfirmBooking", args: []any{id, companionID}},
		{path: "decline", actor: companionID, body: ReasonRequest{Reason: "busy"}, method: "DeclineBooking", args: []any{id, companionID, "busy"}},
		{path: "start", actor: companionID, method: "StartBooking", args: []any{id, companionID}},
		{path: "complete", actor: companionID, method: "CompleteBooking", args: []any{id, companionID}},
		{path: "complete-early", actor: hirerID, method: "CompleteBookingEarly", args: []any{id, hirerID}},
		{path: "cancel", actor: hirerID, body: ReasonRequest{Reason: "plans changed"}, method: "CancelBooking", args: []any{id, hirerID, "plans changed"}},
		{path: "cancel", actor: hirerID, method: "CancelBooking", args: []any{id, hirerID, ""}},
		{path: "emergency-cancel", actor: companionID, body: ReasonRequest{Reason: "hospital"}, method: "EmergencyCancelBooking", args: []any{id, companionID, "hospital"}},
		{path: "no-show", actor: hirerID, body: ReasonRequest{Reason: "never came"}, method: "ReportNoShow", args: []any{id, hirerID, "never came"}},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			env := setupRouter(t)
			args := append([]any{mock.Anything}, tt.args...)
			env.bookings.On(tt.method, args...).Return(&model.Booking{ID: id}, nil).Once()

			w := env.do(http.MethodPost, "/api/v1/bookings/"+id.String()+"/"+tt.path, tt.actor, tt.body)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestBookingTransition_InvalidTransition(t *testing.T) {
	env := setupRouter(t)

	id := uuid.New()
	env.bookings.On("StartBooking", mock.Anything, id, companionID).
		Return(nil, model.InvalidTransition("cannot move from %s to %s", model.BookingStatusCompleted, model.BookingStatusActive)).Once()

	w := env.do(http.MethodPost, "/api/v1/bookings/"+id.String()+"/start", companionID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(model.KindInvalidTransition), decodeError(t, w).Kind)
}

func TestUpdateBookingStatus(t *testing.T) {
	env := setupRouter(t)

	id := uuid.New()
	env.bookings.On("UpdateBookingStatus", mock.Anything, id, companionID, model.BookingStatusConfirmed, "").
		Return(&model.Booking{ID: id, Status: model.BookingStatusConfirmed}, nil).Once()

	w := env.do(http.MethodPatch, "/api/v1/bookings/"+id.String()+"/status", companionID,
		UpdateStatusRequest{Status: model.BookingStatusConfirmed})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPatch, "/api/v1/bookings/"+id.String()+"/status", companionID, []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Companions ---

func TestGetSchedule(t *testing.T) {
	env := setupRouter(t)

	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)
	busy := []model.TimeRange{{Start: from.Add(10 * time.Hour), End: from.Add(12 * time.Hour)}}

	env.bookings.On("GetSchedule", mock.Anything, companionID,
		mock.MatchedBy(func(ts time.Time) bool { return ts.Equal(from) }),
		mock.MatchedBy(func(ts time.Time) bool { return ts.Equal(to) }),
	).Return(busy, nil).Once()

	w := env.do(http.MethodGet, "/api/v1/companions/100/schedule?from="+from.Format(time.RFC3339)+"&to="+to.Format(time.RFC3339), hirerID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ScheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, companionID, resp.CompanionID)
	require.Len(t, resp.Busy, 1)
	assert.True(t, resp.Busy[0].Start.Equal(busy[0].Start))
}

func TestGetSchedule_BadParams(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodGet, "/api/v1/companions/abc/schedule", hirerID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/companions/100/schedule?from=yesterday&to=2026-06-08T00:00:00Z", hirerID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckAvailability(t *testing.T) {
	env := setupRouter(t)

	env.bookings.On("CheckAvailability", mock.Anything, companionID, mock.Anything, mock.Anything).
		Return(false, nil).Once()

	w := env.do(http.MethodGet, "/api/v1/companions/100/availability?start=2026-06-01T10:00:00Z&end=2026-06-01T12:00:00Z", hirerID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
}

// --- Reviews ---

func TestSubmitReview(t *testing.T) {
	env := setupRouter(t)

	bookingID := uuid.New()
	env.reviews.On("SubmitReview", mock.Anything, service.SubmitReviewInput{
		BookingID:  bookingID,
		ReviewerID: hirerID,
		Rating:     5,
		Comment:    "great evening",
	}).Return(&model.Review{ID: uuid.New(), BookingID: bookingID, Rating: 5}, nil).Once()

	w := env.do(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/reviews", hirerID,
		ReviewRequest{Rating: 5, Comment: "great evening"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSubmitReview_Duplicate(t *testing.T) {
	env := setupRouter(t)

	bookingID := uuid.New()
	existing := uuid.New()
	env.reviews.On("SubmitReview", mock.Anything, mock.Anything).
		Return(nil, model.PolicyViolation("review already submitted").With("review_id", existing.String())).Once()

	w := env.do(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/reviews", hirerID,
		ReviewRequest{Rating: 4})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, existing.String(), decodeError(t, w).Details["review_id"])
}

func TestEditReview(t *testing.T) {
	env := setupRouter(t)

	reviewID := uuid.New()
	env.reviews.On("EditReview", mock.Anything, reviewID, hirerID, 3, "ok").
		Return(&model.Review{ID: reviewID, Rating: 3}, nil).Once()

	w := env.do(http.MethodPatch, "/api/v1/reviews/"+reviewID.String(), hirerID, ReviewRequest{Rating: 3, Comment: "ok"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDisputeFlow(t *testing.T) {
	env := setupRouter(t)

	reviewID := uuid.New()
	env.reviews.On("CanDisputeReview", mock.Anything, reviewID, companionID).
		Return(model.DisputeEligibility{CanDispute: true}, nil).Once()
	env.reviews.On("DisputeReview", mock.Anything, reviewID, companionID, "fake review").
		Return(&model.Review{ID: reviewID, Disputed: true}, nil).Once()

	w := env.do(http.MethodGet, "/api/v1/reviews/"+reviewID.String()+"/dispute-eligibility", companionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var eligibility model.DisputeEligibility
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eligibility))
	assert.True(t, eligibility.CanDispute)

	w = env.do(http.MethodPost, "/api/v1/reviews/"+reviewID.String()+"/dispute", companionID, ReasonRequest{Reason: "fake review"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListUserReviews(t *testing.T) {
	env := setupRouter(t)

	env.reviews.On("ListReviews", mock.Anything, companionID).
		Return([]*model.Review{{ID: uuid.New(), Rating: 5}}, nil).Once()

	w := env.do(http.MethodGet, "/api/v1/users/100/reviews", hirerID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListStrikes(t *testing.T) {
	env := setupRouter(t)

	env.strikes.On("ListActiveStrikes", mock.Anything, hirerID).
		Return([]*model.Strike{{ID: uuid.New(), UserID: hirerID}}, nil).Once()

	w := env.do(http.MethodGet, "/api/v1/me/strikes", hirerID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Internal ---

func TestInternal_RequiresToken(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodPost, "/internal/scheduler/run", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/internal/scheduler/run", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInternal_DisabledWithoutToken(t *testing.T) {
	h := NewHandler(&mockBookings{}, &mockReviews{}, &mockStrikes{}, &mockFees{}, zap.NewNop())
	r := NewRouter(gin.TestMode, h, "", time.Second, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/internal/scheduler/run", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInternal_RecordPayment(t *testing.T) {
	env := setupRouter(t)

	id := uuid.New()
	env.bookings.On("RecordPaymentCaptured", mock.Anything, id, model.PaymentStatusHeld).
		Return(&model.Booking{ID: id, PaymentStatus: model.PaymentStatusHeld}, nil).Once()

	w := env.admin(http.MethodPost, "/internal/bookings/"+id.String()+"/payment", PaymentRequest{Status: model.PaymentStatusHeld})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInternal_ResolveDispute(t *testing.T) {
	env := setupRouter(t)

	reviewID := uuid.New()
	env.reviews.On("ResolveReviewDispute", mock.Anything, reviewID, false).
		Return(&model.Review{ID: reviewID, DisputeResolution: model.DisputeResolutionRejected}, nil).Once()

	upheld := false
	w := env.admin(http.MethodPost, "/internal/reviews/"+reviewID.String()+"/resolve", ResolveDisputeRequest{Upheld: &upheld})
	assert.Equal(t, http.StatusOK, w.Code)

	// upheld обязателен
	w = env.admin(http.MethodPost, "/internal/reviews/"+reviewID.String()+"/resolve", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInternal_VoidStrike(t *testing.T) {
	env := setupRouter(t)

	strikeID := uuid.New()
	env.strikes.On("VoidStrike", mock.Anything, strikeID, "appeal accepted").Return(nil).Once()

	w := env.admin(http.MethodPost, "/internal/strikes/"+strikeID.String()+"/void", ReasonRequest{Reason: "appeal accepted"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestInternal_ConfirmStrike(t *testing.T) {
	env := setupRouter(t)

	pending, voided := uuid.New(), uuid.New()
	env.strikes.On("ConfirmStrike", mock.Anything, pending).Return(nil).Once()
	env.strikes.On("ConfirmStrike", mock.Anything, voided).
		Return(model.PolicyViolation("only pending strikes can be confirmed")).Once()

	w := env.admin(http.MethodPost, "/internal/strikes/"+pending.String()+"/confirm", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.admin(http.MethodPost, "/internal/strikes/"+voided.String()+"/confirm", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(http.MethodPost, "/internal/strikes/"+pending.String()+"/confirm", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInternal_RunScheduler(t *testing.T) {
	env := setupRouter(t)

	env.bookings.On("RunScheduledTransitions", mock.Anything).
		Return([]service.SweepResult{{Task: "expire_pending", Scanned: 2, Succeeded: 2}}, nil).Once()

	w := env.admin(http.MethodPost, "/internal/scheduler/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []service.SweepResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 2, resp[0].Succeeded)
}

func TestInternal_SetPlatformFee(t *testing.T) {
	env := setupRouter(t)

	env.fees.On("SetPlatformFeeFraction", mock.Anything, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString("0.2"))
	})).Return(nil).Once()

	w := env.admin(http.MethodPut, "/internal/settings/platform-fee", PlatformFeeRequest{Fee: "0.20"})
	assert.Equal(t, http.StatusOK, w.Code)

	for _, fee := range []string{"1", "-0.1", "abc"} {
		w = env.admin(http.MethodPut, "/internal/settings/platform-fee", PlatformFeeRequest{Fee: fee})
		assert.Equal(t, http.StatusBadRequest, w.Code, fee)
	}
}
