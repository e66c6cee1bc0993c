package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func traceTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("trace_id"))
	})
	return r
}

func TestTraceID_PropagatesInboundHeader(t *testing.T) {
	r := traceTestRouter()
	inbound := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-ID", inbound)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Trace-ID"); got != inbound {
		t.Fatalf("response header: expected %s, got %s", inbound, got)
	}
	if w.Body.String() != inbound {
		t.Fatalf("context trace id: expected %s, got %s", inbound, w.Body.String())
	}
}

func TestTraceID_MintsWhenMissingOrInvalid(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
	}{
		{"no header", ""},
		{"not a uuid", "trace-me-please"},
	}

	r := traceTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.inbound != "" {
				req.Header.Set("X-Trace-ID", tt.inbound)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Trace-ID")
			if got == tt.inbound {
				t.Fatal("expected a freshly minted trace id")
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("minted trace id is not a uuid: %q", got)
			}
		})
	}
}
