// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager defaults and TXT record handling
package discovery

import (
	"testing"
)

func TestNewManager(t *testing.T) {
	config := Config{
		ServiceName: "Test Engine",
		Port:        8937,
	}

	mgr := NewManager(config)
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.config.Path != "/control" {
		t.Errorf("expected default path /control, got %s", mgr.config.Path)
	}
	mgr.Stop()
}

func TestTXTRecords(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Engine", Port: 1, SessionID: "abc"})
	defer mgr.Stop()

	txt := mgr.txtRecords()
	if len(txt) != 2 || txt[0] != "path=/control" || txt[1] != "session=abc" {
		t.Errorf("unexpected txt records: %v", txt)
	}
}

func TestPathFromTXT(t *testing.T) {
	tests := []struct {
		name     string
		fields   []string
		expected string
	}{
		{"present", []string{"session=x", "path=/ws"}, "/ws"},
		{"missing", []string{"session=x"}, "/control"},
		{"empty value", []string{"path="}, "/control"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pathFromTXT(tt.fields); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}
