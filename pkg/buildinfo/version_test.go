package buildinfo

import (
	"strings"
	"testing"
)

func TestStrings(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v9.9.9"

	if !strings.HasPrefix(UserAgent(), "yiyin/v9.9.9 ") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
	if !strings.Contains(String(), "version: v9.9.9") {
		t.Errorf("String() = %q", String())
	}
	if !strings.HasPrefix(Template(), "{{.Name}} v9.9.9 (") {
		t.Errorf("Template() = %q", Template())
	}
}
