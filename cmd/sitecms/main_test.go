package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBuiltInSchemas(t *testing.T) {
	var out bytes.Buffer
	checkCmd.SetOut(&out)
	t.Cleanup(func() { checkCmd.SetOut(nil) })

	require.NoError(t, runCheck(checkCmd, nil))
	for _, name := range []string{"about", "fence", "app-download", "footer"} {
		assert.Contains(t, out.String(), name+":")
	}
	assert.Contains(t, out.String(), "translations")
}

func TestCheckRejectsBadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resources:\n  - name: x\n    mapper: xml\n"), 0o644))

	err := runCheck(checkCmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestInitCreatesProject(t *testing.T) {
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	initCmd.SetOut(&out)
	t.Cleanup(func() { initCmd.SetOut(nil) })

	require.NoError(t, runInit(initCmd, []string{"github.com/acme/my-site"}))
	assert.FileExists(t, filepath.Join("my-site", "main.go"))
	assert.FileExists(t, filepath.Join("my-site", ".env.example"))
	assert.FileExists(t, filepath.Join("my-site", "schemas", "site.yaml"))
	assert.Contains(t, out.String(), "cd my-site")

	err := runInit(initCmd, []string{"my-site"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestPublishUnknownResource(t *testing.T) {
	publishRemote = "http://127.0.0.1:1/api"
	t.Cleanup(func() { publishRemote = "" })

	err := runPublish(publishCmd, []string{"nope", "main"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}
