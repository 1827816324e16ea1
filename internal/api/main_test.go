package api

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/divestreams/booking-core/internal/auth"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv(auth.SecretEnv, "test-jwt-secret-that-is-32-chars!!")
	os.Exit(m.Run())
}
