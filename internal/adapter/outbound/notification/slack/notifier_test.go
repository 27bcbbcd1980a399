package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonny/mediq/internal/adapter/outbound/notification/slack"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

func sampleNotification() outbound.ReportNotification {
	return outbound.ReportNotification{
		SessionID:   "SES-1A2B3C",
		ReportID:    "REP-9F8E7D6C",
		AnalysisID:  "a1b2c3d4e5f6",
		Filename:    "bloodwork.pdf",
		PatientName: "Jane Doe",
		HealthScore: 38,
		OverallRisk: "high-risk",
		Summary:     "Potassium critically elevated.",
		Engine:      "gemini",
		Level:       outbound.NotificationCritical,
		RedFlags: []outbound.FlaggedParameter{
			{Name: "Potassium", Value: "6.8", Unit: "mmol/L", NormalRange: "3.5-5.1", Status: "critical"},
		},
	}
}

func TestBuildReportBlocks(t *testing.T) {
	blocks := slack.BuildReportBlocks(sampleNotification())
	if len(blocks) < 5 {
		t.Fatalf("expected at least 5 blocks, got %d", len(blocks))
	}

	raw, err := json.Marshal(blocks)
	if err != nil {
		t.Fatalf("marshal blocks: %v", err)
	}
	body := string(raw)
	for _, want := range []string{"Critical values detected", "Potassium", "HIGH-RISK", "REP-9F8E7D6C"} {
		if !strings.Contains(body, want) {
			t.Errorf("blocks missing %q", want)
		}
	}
}

func TestBuildReportBlocks_NoRedFlags(t *testing.T) {
	n := sampleNotification()
	n.RedFlags = nil
	n.Summary = ""
	n.Level = outbound.NotificationWarning

	raw, _ := json.Marshal(slack.BuildReportBlocks(n))
	if strings.Contains(string(raw), "Red flags") {
		t.Error("red flag section should be omitted")
	}
	if !strings.Contains(string(raw), "Report needs review") {
		t.Error("warning title missing")
	}
}

func newSlackServer(t *testing.T, got *[]map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat.postMessage") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		*got = append(*got, map[string]string{
			"channel": r.FormValue("channel"),
			"text":    r.FormValue("text"),
			"blocks":  r.FormValue("blocks"),
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true, "channel": "C123", "ts": "1700000000.000100"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNotifier_NotifyReport(t *testing.T) {
	var got []map[string]string
	srv := newSlackServer(t, &got)
	n := slack.NewNotifier(slack.Config{BotToken: "xoxb-test", Channel: "C123", APIURL: srv.URL + "/"})

	if err := n.NotifyReport(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("NotifyReport: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if got[0]["channel"] != "C123" {
		t.Errorf("channel = %q", got[0]["channel"])
	}
	if !strings.Contains(got[0]["text"], "[CRITICAL] bloodwork.pdf scored 38") {
		t.Errorf("fallback text = %q", got[0]["text"])
	}
	if !strings.Contains(got[0]["blocks"], "Potassium") {
		t.Errorf("blocks = %q", got[0]["blocks"])
	}
}

func TestNotifier_SendMessage(t *testing.T) {
	var got []map[string]string
	srv := newSlackServer(t, &got)
	n := slack.NewNotifier(slack.Config{BotToken: "xoxb-test", Channel: "C123", APIURL: srv.URL + "/"})

	if err := n.SendMessage(context.Background(), "archive offline", outbound.NotificationWarning); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(got) != 1 || got[0]["text"] != ":large_yellow_circle: archive offline" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
	}))
	defer srv.Close()

	n := slack.NewNotifier(slack.Config{BotToken: "xoxb-test", Channel: "nope", APIURL: srv.URL + "/"})
	err := n.SendMessage(context.Background(), "hi", outbound.NotificationInfo)
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("expected channel_not_found error, got %v", err)
	}
}
