package shared

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/maronglamin/snap-admin-sub004/internal/http/response"

	"github.com/gin-gonic/gin"
)

func newTestContext(query string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c, w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return resp.StatusCode
}

func TestGetContextUintWithKeys(t *testing.T) {
	cases := []struct {
		name   string
		value  interface{}
		set    bool
		wantOK bool
		want   int
	}{
		{name: "uint", value: uint(7), set: true, wantOK: true},
		{name: "int", value: 7, set: true, wantOK: true},
		{name: "missing", set: false, want: response.CodeUnauthorized},
		{name: "zero", value: uint(0), set: true, want: response.CodeUnauthorized},
		{name: "negative", value: -1, set: true, want: response.CodeBadRequest},
		{name: "wrong type", value: "7", set: true, want: response.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newTestContext("")
			if tc.set {
				c.Set("admin_id", tc.value)
			}
			id, ok := GetContextUintWithKeys(c, "admin_id", "error.admin_id_invalid", "error.admin_id_type_invalid")
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if ok {
				if id != 7 {
					t.Fatalf("expected id 7, got %d", id)
				}
				return
			}
			if got := decodeStatus(t, w); got != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, got)
			}
		})
	}
}

func TestGetContextString(t *testing.T) {
	c, _ := newTestContext("")
	if got := GetContextString(c, "username"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	c.Set("username", "root")
	c.Set("request_id", 42)
	if got := GetContextString(c, "username"); got != "root" {
		t.Fatalf("expected root, got %q", got)
	}
	if got := GetContextString(c, "request_id"); got != "" {
		t.Fatalf("non-string value should read as empty, got %q", got)
	}
	if got := GetContextString(nil, "username"); got != "" {
		t.Fatalf("nil context should read as empty")
	}
}

func TestPaginationFromQuery(t *testing.T) {
	cases := []struct {
		query      string
		page, size int
	}{
		{query: "", page: 1, size: 20},
		{query: "page=3&page_size=50", page: 3, size: 50},
		{query: "page=-2&page_size=500", page: 1, size: 100},
		{query: "page=abc&page_size=0", page: 1, size: 20},
	}
	for _, tc := range cases {
		c, _ := newTestContext(tc.query)
		page, size := PaginationFromQuery(c)
		if page != tc.page || size != tc.size {
			t.Fatalf("%q: expected %d/%d, got %d/%d", tc.query, tc.page, tc.size, page, size)
		}
	}
}

func TestAppErrorKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	appErr := response.WrapError(response.CodeInternal, "error.internal", "internal error", cause)
	if !errors.Is(appErr, cause) {
		t.Fatalf("expected wrapped cause")
	}
	if !appErr.ServerSide() {
		t.Fatalf("500 should be server side")
	}
	if response.WrapError(response.CodeBadRequest, "", "bad", nil).ServerSide() {
		t.Fatalf("400 should not be server side")
	}
	if got := appErr.Error(); got != "error.internal: internal error: boom" {
		t.Fatalf("unexpected message %q", got)
	}
}
