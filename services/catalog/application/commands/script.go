package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghuser/prodvault/services/catalog/domain"
	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// maxScriptBytes bounds the script files the server is willing to read.
const maxScriptBytes = 1 << 20

// runExecuteScript reads a server-side script file and feeds each line back
// through the dispatcher as the same user. One command per line, arguments
// whitespace-separated, "-" for absent optional values. Blank lines and lines
// starting with // are skipped. Scripts may not start other scripts, and the
// same file cannot run twice concurrently (guarded by resolved absolute
// path).
func (r *Registry) runExecuteScript(ctx context.Context, args []string, user *models.User) (string, error) {
	path, err := filepath.Abs(strings.TrimSpace(args[0]))
	if err != nil {
		return "", fmt.Errorf("%w: resolve script path: %v", domain.ErrValidation, err)
	}

	if err := r.claimScript(path); err != nil {
		return "", err
	}
	defer r.releaseScript(path)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open script: %v", domain.ErrValidation, err)
	}
	defer f.Close() //nolint:errcheck

	if st, err := f.Stat(); err == nil && st.Size() > maxScriptBytes {
		return "", fmt.Errorf("%w: script exceeds %d bytes", domain.ErrValidation, maxScriptBytes)
	}

	var out strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScriptBytes)
	lineNo := 0
	executed := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)
		name := strings.ToLower(fields[0])
		if name == "execute_script" {
			return "", fmt.Errorf("%w: line %d", domain.ErrScriptNotAllowed, lineNo)
		}
		result, err := r.Execute(ctx, name, fields[1:], user)
		if err != nil {
			return "", fmt.Errorf("script line %d (%s): %w", lineNo, name, err)
		}
		executed++
		fmt.Fprintf(&out, "[%d] %s: %s\n", lineNo, name, result)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: read script: %v", domain.ErrValidation, err)
	}

	r.log.InfoContext(ctx, "script executed",
		"path", path, "commands", executed, "user", user.Username)
	fmt.Fprintf(&out, "script finished: %d command(s) executed", executed)
	return out.String(), nil
}

// claimScript marks path as executing; a second claim for the same path fails
// with ErrScriptRecursion.
func (r *Registry) claimScript(path string) error {
	r.scriptsMu.Lock()
	defer r.scriptsMu.Unlock()
	if _, running := r.activeScripts[path]; running {
		return fmt.Errorf("%w: %s", domain.ErrScriptRecursion, path)
	}
	r.activeScripts[path] = struct{}{}
	return nil
}

func (r *Registry) releaseScript(path string) {
	r.scriptsMu.Lock()
	defer r.scriptsMu.Unlock()
	delete(r.activeScripts, path)
}
