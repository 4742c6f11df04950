package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		header string
		want   string
	}{
		{header: "", want: LocaleZH},
		{header: "en-GB,en;q=0.9", want: LocaleEN},
		{header: "zh-HK;q=0.8", want: LocaleTW},
		{header: "fr-FR", want: LocaleZH},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Accept-Language", tc.header)
		}
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("header %q want %s got %s", tc.header, tc.want, got)
		}
	}
}

func TestTranslateFallback(t *testing.T) {
	if got := T(LocaleEN, "error.invalid_credentials"); got != "Invalid credentials" {
		t.Fatalf("unexpected en message: %s", got)
	}
	if got := T(LocaleEN, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("missing key should fall back to key, got %s", got)
	}
	if got := Sprintf(LocaleEN, "error.password_min_length", 12); got != "Password must be at least 12 characters" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}

func TestCatalogKeysAligned(t *testing.T) {
	base := catalog[DefaultLocale]
	for locale, msgs := range catalog {
		for key := range base {
			if _, ok := msgs[key]; !ok {
				t.Fatalf("locale %s missing key %s", locale, key)
			}
		}
	}
}
