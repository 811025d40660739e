package uploads

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("NewStore(): %v", err)
	}

	content := "def main():\n    pass\n"
	name := "u1_a1_solution.py"

	t.Run("save and open", func(t *testing.T) {
		if err := store.Save(name, strings.NewReader(content)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		rc, err := store.Open(name)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = rc.Close() }()

		got, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("io.ReadAll(): %v", err)
		}
		if string(got) != content {
			t.Errorf("content = %q; want %q", got, content)
		}
	})

	t.Run("traversal attempts stay inside the directory", func(t *testing.T) {
		if err := store.Save("../escape.txt", strings.NewReader("x")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
			t.Error("file escaped the upload directory")
		}
		if _, err := store.Open("escape.txt"); err != nil {
			t.Error("expected the file inside the upload directory")
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := store.Remove(name); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if _, err := store.Open(name); err == nil {
			t.Error("Open() should fail after Remove()")
		}
	})

	t.Run("removing a missing file is a no-op", func(t *testing.T) {
		if err := store.Remove("never-there.txt"); err != nil {
			t.Errorf("Remove() error = %v", err)
		}
	})
}
