package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Identity())
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"present", "u1", http.StatusOK, "u1"},
		{"trimmed", "  u2 ", http.StatusOK, "u2"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"blank", "   ", http.StatusUnauthorized, ""},
		{"too long", strings.Repeat("x", maxUserIDLen+1), http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(HeaderUserID, tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			if tc.status == http.StatusOK {
				if w.Body.String() != tc.body {
					t.Fatalf("body = %q", w.Body.String())
				}
				return
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad json: %v", err)
			}
			if body["code"] != "unauthorized" || body["request_id"] == "" {
				t.Fatalf("unexpected error body: %v", body)
			}
		})
	}
}

func TestUserID_AbsentOrWrongType(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := UserID(c); got != "" {
		t.Fatalf("UserID = %q, want empty", got)
	}
	c.Set(userIDKey, 42)
	if got := UserID(c); got != "" {
		t.Fatalf("non-string identity must read as empty, got %q", got)
	}
}
