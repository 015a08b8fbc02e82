package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexlabs/qgen/internal/assets"
	"github.com/lexlabs/qgen/internal/config"
	"github.com/lexlabs/qgen/internal/curriculum"
)

func TestInitQgenDir(t *testing.T) {
	t.Run("scaffolds the full directory tree", func(t *testing.T) {
		tmpDir := t.TempDir()
		var buf bytes.Buffer

		if err := initQgenDir(tmpDir, &buf); err != nil {
			t.Fatalf("initQgenDir() error = %v", err)
		}

		qgenDir := filepath.Join(tmpDir, assets.QgenDir)
		for _, f := range []string{
			assets.ConfigFile,
			assets.PromptFile,
			assets.SchemaFile,
			"curricula/japanese.yaml",
			"grammar/japanese/n5.yaml",
			"vocab/japanese/n5.yaml",
			filepath.Join(assets.ArchiveDir, ".gitkeep"),
		} {
			if _, err := os.Stat(filepath.Join(qgenDir, f)); err != nil {
				t.Errorf("missing scaffold file %s: %v", f, err)
			}
		}

		out := buf.String()
		if !strings.Contains(out, "Initialized .qgen/") {
			t.Errorf("output missing init line:\n%s", out)
		}
		if !strings.Contains(out, "Next steps") {
			t.Errorf("output missing next steps:\n%s", out)
		}
	})

	t.Run("scaffold is immediately loadable", func(t *testing.T) {
		tmpDir := t.TempDir()
		var buf bytes.Buffer
		if err := initQgenDir(tmpDir, &buf); err != nil {
			t.Fatalf("initQgenDir() error = %v", err)
		}

		if _, err := config.Load(tmpDir); err != nil {
			t.Errorf("config.Load() on scaffold error = %v", err)
		}
		spec, err := curriculum.Load(filepath.Join(tmpDir, assets.QgenDir), "japanese")
		if err != nil {
			t.Fatalf("curriculum.Load() on scaffold error = %v", err)
		}
		if spec.Language != "japanese" {
			t.Errorf("Language = %q, want japanese", spec.Language)
		}
	})

	t.Run("refuses to overwrite an existing setup", func(t *testing.T) {
		tmpDir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(tmpDir, assets.QgenDir), 0755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}

		var buf bytes.Buffer
		err := initQgenDir(tmpDir, &buf)
		if err == nil {
			t.Fatal("initQgenDir() error = nil, want already-exists error")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("error = %v, want mention of existing directory", err)
		}
	})
}
