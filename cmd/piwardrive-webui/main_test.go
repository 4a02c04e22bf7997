package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/trashytalk/piwardrive-go/internal/config"
	"github.com/trashytalk/piwardrive-go/pkg/models"
)

func TestParseWeekdays(t *testing.T) {
	got := parseWeekdays([]string{"Monday", "friday", "bogus"})
	want := []time.Weekday{time.Monday, time.Friday}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestConvertScanRules(t *testing.T) {
	rules := map[string]config.ScanRule{
		"wifi": {Enabled: true, StartTime: "08:00", EndTime: "20:00", Days: []string{"saturday", "sunday"}},
	}
	out := convertScanRules(rules)
	r, ok := out["wifi"]
	if !ok {
		t.Fatal("expected a converted rule for wifi")
	}
	if !r.Enabled || r.StartTime != "08:00" || r.EndTime != "20:00" {
		t.Errorf("converted rule = %+v, want enabled 08:00-20:00", r)
	}
	if len(r.Days) != 2 || r.Days[0] != time.Saturday || r.Days[1] != time.Sunday {
		t.Errorf("converted days = %v, want [Saturday Sunday]", r.Days)
	}
}

func TestAlertPriorityOrdersBySeverity(t *testing.T) {
	high := alertPriority(models.SeverityHigh)
	medium := alertPriority(models.SeverityMedium)
	low := alertPriority(models.SeverityLow)
	if !(high < medium && medium < low) {
		t.Fatalf("priorities = high:%d medium:%d low:%d, want high < medium < low", high, medium, low)
	}
}

func TestBuildLogAllowlistNormalizesPaths(t *testing.T) {
	v := viper.New()
	v.Set("log_allowlist", []string{"/var/log/piwardrive/./app.log", "/var/log/syslog"})
	allow := buildLogAllowlist(v)
	if !allow["/var/log/piwardrive/app.log"] {
		t.Errorf("allowlist = %v, want a cleaned entry for the first path", allow)
	}
	if !allow["/var/log/syslog"] {
		t.Errorf("allowlist = %v, want the second path present", allow)
	}
}

func TestBuildServiceAllowlist(t *testing.T) {
	v := viper.New()
	v.Set("service_allowlist", []string{"piwardrive", "gpsd"})
	allow := buildServiceAllowlist(v)
	if !allow["piwardrive"] || !allow["gpsd"] {
		t.Errorf("allowlist = %v, want both units present", allow)
	}
	if allow["unrelated"] {
		t.Error("expected an unlisted unit to be absent")
	}
}

func TestWithAuthExemptionsBypassesTokenAndSwagger(t *testing.T) {
	var authChecked bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authChecked = true
			next.ServeHTTP(w, r)
		})
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := withAuthExemptions(mw, inner)

	authChecked = false
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/token", http.NoBody))
	if authChecked {
		t.Error("expected /token to bypass the auth middleware")
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	authChecked = false
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/swagger/doc.json", http.NoBody))
	if authChecked {
		t.Error("expected /swagger/ to bypass the auth middleware")
	}

	authChecked = false
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/status", http.NoBody))
	if !authChecked {
		t.Error("expected a normal route to go through the auth middleware")
	}
}
