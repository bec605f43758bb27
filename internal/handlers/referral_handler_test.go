package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestTrackClickRequiresReferralCode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewReferralHandler(nil, 30*24*time.Hour)
	router := gin.New()
	router.POST("/api/referrals/click", handler.TrackClick)

	body := bytes.NewBufferString(`{"landing_page": "/deals/bali"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/referrals/click", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestTrackClickRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewReferralHandler(nil, 30*24*time.Hour)
	router := gin.New()
	router.POST("/api/referrals/click", handler.TrackClick)

	req := httptest.NewRequest(http.MethodPost, "/api/referrals/click", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
