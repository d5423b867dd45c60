package notifications

import (
	"reflect"
	"testing"
)

func TestParseShoutrrrURLs(t *testing.T) {
	got := parseShoutrrrURLs(" discord://token@id , ,slack://a/b/c,")
	want := []string{"discord://token@id", "slack://a/b/c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLoadNotificationConfigOptional(t *testing.T) {
	t.Setenv("SHOUTRRR_URLS", "")
	cfg, err := LoadNotificationConfig()
	if err != nil {
		t.Fatalf("LoadNotificationConfig: %v", err)
	}
	if cfg.Enabled() {
		t.Errorf("expected notifications disabled, got %v", cfg.ShoutrrrURLs)
	}

	t.Setenv("SHOUTRRR_URLS", "telegram://token@telegram?chats=1")
	cfg, err = LoadNotificationConfig()
	if err != nil {
		t.Fatalf("LoadNotificationConfig: %v", err)
	}
	if !cfg.Enabled() || len(cfg.ShoutrrrURLs) != 1 {
		t.Errorf("expected one URL, got %v", cfg.ShoutrrrURLs)
	}
}

func TestNewNotifierRejectsUnknownService(t *testing.T) {
	if _, err := NewNotifier([]string{"nosuchservice://host"}); err == nil {
		t.Fatal("expected error for unknown service scheme")
	}
}
