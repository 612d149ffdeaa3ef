package repl

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
)

func TestHistory_AddAndGet(t *testing.T) {
	h := NewHistory("", 0)
	if h.maxSize != DefaultHistorySize {
		t.Errorf("maxSize = %d, want %d", h.maxSize, DefaultHistorySize)
	}

	h.Add("login")
	h.Add("whoami")
	h.Add("whoami")
	h.Add("logout")

	if got := h.Entries(); !reflect.DeepEqual(got, []string{"login", "whoami", "logout"}) {
		t.Errorf("Entries() = %v", got)
	}
	if h.Get(0) != "logout" || h.Get(2) != "login" {
		t.Errorf("Get() returned %q / %q", h.Get(0), h.Get(2))
	}
	if h.Get(-1) != "" || h.Get(3) != "" {
		t.Error("out of range Get should return empty")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory("", 3)
	for i := 1; i <= 5; i++ {
		h.Add("cmd" + strconv.Itoa(i))
	}
	if got := h.Entries(); !reflect.DeepEqual(got, []string{"cmd3", "cmd4", "cmd5"}) {
		t.Errorf("Entries() = %v", got)
	}
}

func TestHistory_SkipsPasswords(t *testing.T) {
	h := NewHistory("", 0)
	for _, line := range []string{
		"login --phone +998901234567 --password secret1",
		"login --password=secret1",
		"login -p secret1",
		"login -p=secret1",
	} {
		h.Add(line)
	}
	h.Add("login --phone +998901234567")

	if got := h.Entries(); len(got) != 1 {
		t.Errorf("Entries() = %v, want only the password-free line", got)
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "history")

	h := NewHistory(file, 0)
	h.Add("whoami")
	h.Add("config show")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(file)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("history mode = %o, want 600", perm)
	}

	loaded := NewHistory(file, 0)
	loaded.Add("version")
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.Entries(); !reflect.DeepEqual(got, []string{"whoami", "config show", "version"}) {
		t.Errorf("Entries() = %v", got)
	}
}

func TestHistory_LoadTrims(t *testing.T) {
	file := filepath.Join(t.TempDir(), "history")
	if err := os.WriteFile(file, []byte("a\n\nb\nc\nd\n"), 0600); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(file, 2)
	if err := h.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := h.Entries(); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Errorf("Entries() = %v", got)
	}
}

func TestHistory_MissingAndMemoryOnly(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "absent"), 0)
	if err := h.Load(); err != nil {
		t.Errorf("Load() of a missing file error = %v", err)
	}

	mem := NewHistory("", 0)
	mem.Add("whoami")
	if err := mem.Save(); err != nil {
		t.Errorf("Save() without a file error = %v", err)
	}
	if err := mem.Load(); err != nil {
		t.Errorf("Load() without a file error = %v", err)
	}
}
