package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"movido/internal/billing"
	"movido/internal/billing/handler/mocks"
	dErrors "movido/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/billing-mocks.go -package=mocks Service
type BillingHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *BillingHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func (s *BillingHandlerSuite) newHandler(t *testing.T) (*mocks.MockService, chi.Router) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	New(mockService, logger, nil).Register(router)
	return mockService, router
}

func (s *BillingHandlerSuite) TestHandler_CreateCheckoutSession() {
	s.T().Run("forwards the request and returns the session url", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		requestBody := `{"priceId":"price_1T4QFN0gB9FXYr87EWm1IP4e","customerEmail":"dispatcher@movido.co.uk"}`
		expectedReq := &billing.CheckoutRequest{
			PriceID:       "price_1T4QFN0gB9FXYr87EWm1IP4e",
			CustomerEmail: "dispatcher@movido.co.uk",
		}
		expectedRes := &billing.CheckoutResult{
			URL:       "https://checkout.stripe.com/c/pay/cs_test_123",
			SessionID: "cs_test_123",
		}
		mockService.EXPECT().CreateCheckoutSession(gomock.Any(), expectedReq).Return(expectedRes, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(requestBody))
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body billing.CheckoutResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, *expectedRes, body)
	})

	s.T().Run("trims whitespace before forwarding", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		requestBody := `{"priceId":"  price_1T4QFN0gB9FXYr87EWm1IP4e  "}`
		expectedReq := &billing.CheckoutRequest{PriceID: "price_1T4QFN0gB9FXYr87EWm1IP4e"}
		mockService.EXPECT().CreateCheckoutSession(gomock.Any(), expectedReq).
			Return(&billing.CheckoutResult{URL: "https://checkout.stripe.com/x", SessionID: "cs_1"}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(requestBody))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	s.T().Run("rejects malformed JSON", func(t *testing.T) {
		_, router := s.newHandler(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(`{"priceId":`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid JSON in request body"}`, rec.Body.String())
	})

	s.T().Run("maps a validation failure to 400 with the exact message", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "priceId is required"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(`{}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"priceId is required"}`, rec.Body.String())
	})

	s.T().Run("maps a configuration failure to 500 with the exact message", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConfiguration, "Stripe secret key not configured"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(`{"priceId":"price_x"}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Stripe secret key not configured"}`, rec.Body.String())
	})

	s.T().Run("maps an upstream failure to 500 with the provider message", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUpstream, "No such price: 'price_nope'"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(`{"priceId":"price_nope"}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"No such price: 'price_nope'"}`, rec.Body.String())
	})
}

func (s *BillingHandlerSuite) TestHandler_ListPlans() {
	s.T().Run("returns the catalog with the contact address", func(t *testing.T) {
		_, router := s.newHandler(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/billing/plans", nil)
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Plans   []billing.Plan `json:"plans"`
			Contact string         `json:"contact"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Plans, 3)
		assert.Equal(t, "Starter", body.Plans[0].Name)
		assert.True(t, body.Plans[1].Popular)
		assert.Nil(t, body.Plans[2].Price)
		assert.Equal(t, billing.ContactURL, body.Contact)
	})
}

func TestBillingHandlerSuite(t *testing.T) {
	suite.Run(t, new(BillingHandlerSuite))
}
