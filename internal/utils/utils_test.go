package utils

import (
	"net/http/httptest"
	"testing"
)

func TestEnvSubst(t *testing.T) {
	t.Setenv("CATALOG_TOKEN", "s3cret")

	tests := []struct {
		input string
		want  string
	}{
		{"Bearer ${CATALOG_TOKEN}", "Bearer s3cret"},
		{"${CATALOG_TOKEN}${CATALOG_TOKEN}", "s3crets3cret"},
		{"${UNSET_CATALOG_VARIABLE}", ""},
		{"no placeholders", "no placeholders"},
	}

	for _, tt := range tests {
		if got := EnvSubst(tt.input); got != tt.want {
			t.Errorf("EnvSubst(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReadUserIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/services", nil)
	r.RemoteAddr = "203.0.113.10:52114"

	if got := ReadUserIP(r); got != "203.0.113.10" {
		t.Errorf("ReadUserIP() = %q, want the remote address host", got)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 203.0.113.10")
	if got := ReadUserIP(r); got != "198.51.100.7" {
		t.Errorf("ReadUserIP() = %q, want the first forwarded address", got)
	}
}

func TestStringInSlice(t *testing.T) {
	list := []string{"background", "grid"}

	if !StringInSlice("grid", list) {
		t.Error("StringInSlice(grid) = false, want true")
	}
	if StringInSlice("Pollen", list) {
		t.Error("StringInSlice(Pollen) = true, want false")
	}
	if StringInSlice("background", nil) {
		t.Error("StringInSlice() on a nil list = true, want false")
	}
}
