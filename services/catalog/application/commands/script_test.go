package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ghuser/prodvault/services/catalog/domain"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecuteScript(t *testing.T) {
	ctx := context.Background()

	t.Run("runs commands, skips comments and blanks", func(t *testing.T) {
		r, _, store := newTestRegistry(t)
		path := writeScript(t, strings.Join([]string{
			"// seed the collection",
			"",
			"add widget 10 2.5 100 PN-1 3.5 grams - - -",
			"info",
		}, "\n"))

		out, err := r.Execute(ctx, "execute_script", []string{path}, alice)
		if err != nil {
			t.Fatalf("execute_script: %v", err)
		}
		if store.Len() != 1 {
			t.Fatalf("store has %d products, want 1", store.Len())
		}
		if !strings.Contains(out, "2 command(s) executed") {
			t.Errorf("unexpected summary: %q", out)
		}
	})

	t.Run("nested script rejected", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		path := writeScript(t, "execute_script other.txt\n")
		_, err := r.Execute(ctx, "execute_script", []string{path}, alice)
		if !errors.Is(err, domain.ErrScriptNotAllowed) {
			t.Fatalf("got %v, want ErrScriptNotAllowed", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		_, err := r.Execute(ctx, "execute_script", []string{"/does/not/exist.txt"}, alice)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("got %v, want ErrValidation", err)
		}
	})

	t.Run("failing line reports its number", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		path := writeScript(t, "info\nremove_by_id 99\n")
		_, err := r.Execute(ctx, "execute_script", []string{path}, alice)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Errorf("error does not name the line: %v", err)
		}
	})

	t.Run("same script cannot run twice concurrently", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		path := writeScript(t, "info\n")
		abs, err := filepath.Abs(path)
		if err != nil {
			t.Fatalf("abs: %v", err)
		}
		if err := r.claimScript(abs); err != nil {
			t.Fatalf("claim: %v", err)
		}
		_, err = r.Execute(ctx, "execute_script", []string{path}, alice)
		if !errors.Is(err, domain.ErrScriptRecursion) {
			t.Fatalf("got %v, want ErrScriptRecursion", err)
		}
		r.releaseScript(abs)
		if _, err := r.Execute(ctx, "execute_script", []string{path}, alice); err != nil {
			t.Fatalf("script should run after release: %v", err)
		}
	})
}
