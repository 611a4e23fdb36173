package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fluxao-backend-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Parses(t *testing.T) {
	p := Default()
	require.NotNil(t, p.Matrix)
	assert.NotEmpty(t, p.BlockedKeywords)
	assert.NotEmpty(t, p.Injection)
	assert.NotEmpty(t, p.Suspicious)
	assert.Len(t, p.Redactions, 4)
	assert.Contains(t, p.BlockedKeywords, "drop table")
}

func TestPermissionMatrix_Tasks(t *testing.T) {
	m := Default().Matrix
	cases := []struct {
		role models.Role
		task string
		want bool
	}{
		{models.RoleAdmin, "trend-analysis", true},
		{models.RoleEditor, "trend-analysis", false},
		{models.RoleUser, "trend-analysis", false},
		{models.RoleEditor, "SEO-optimization", true},
		{models.RoleUser, "content-generation", false},
		{models.RoleUser, "basic-content", true},
		{models.RoleAdmin, "monitoring", true},
		// unknown tasks are only open to unknown_task_roles
		{models.RoleUser, "poetry", true},
		{models.RoleEditor, "poetry", false},
		{models.RoleAdmin, "poetry", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+tc.task, func(t *testing.T) {
			assert.Equal(t, tc.want, m.CanPerformTask(tc.role, tc.task))
		})
	}
}

func TestPermissionMatrix_Providers(t *testing.T) {
	m := Default().Matrix
	assert.True(t, m.CanUseProvider(models.RoleEditor, "claude"))
	assert.True(t, m.CanUseProvider(models.RoleEditor, " OpenAI "))
	assert.False(t, m.CanUseProvider(models.RoleUser, "claude"))
	assert.False(t, m.CanUseProvider(models.RoleEditor, "llama"))
	assert.True(t, m.CanUseProvider(models.RoleAdmin, "llama"))
	assert.False(t, m.CanUseProvider(models.RoleAdmin, "mystery-llm"))

	assert.Equal(t, []string{"claude", "gemini", "openai"}, m.ProvidersFor(models.RoleEditor))
	assert.Equal(t, []string{"basic-content"}, m.TasksFor(models.RoleUser))
}

func TestNewPermissionMatrix_RejectsUnknownRole(t *testing.T) {
	_, err := NewPermissionMatrix(map[string][]string{"OWNER": {"analysis"}}, nil, nil)
	require.Error(t, err)
}

func TestCostPer1K(t *testing.T) {
	p := Default()
	assert.InDelta(t, 0.009, p.CostPer1K("claude"), 1e-9)
	assert.InDelta(t, 0.0, p.CostPer1K("llama"), 1e-9)
	assert.InDelta(t, 0.01, p.CostPer1K("unknown"), 1e-9)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("roles: ["))
	require.Error(t, err)

	_, err = Parse([]byte("roles:\n  USER: [basic-content]\ninjection_patterns:\n  - name: broken\n    pattern: '('\n"))
	require.Error(t, err)

	_, err = Parse([]byte("blocked_keywords: [x]\n"))
	require.Error(t, err)
}

const minimalPolicy = "roles:\n  USER: [basic-content]\nunknown_task_roles: []\n"

func TestHolder_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalPolicy), 0o644))

	h := NewHolder(Default())
	require.NoError(t, h.Reload(path))
	assert.False(t, h.Get().Matrix.CanPerformTask(models.RoleUser, "poetry"))

	require.NoError(t, os.WriteFile(path, []byte("roles: ["), 0o644))
	require.Error(t, h.Reload(path))
	assert.False(t, h.Get().Matrix.CanPerformTask(models.RoleUser, "poetry"))
	assert.True(t, h.Get().Matrix.CanPerformTask(models.RoleUser, "basic-content"))
}

func TestHolder_WatchPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalPolicy), 0o644))

	h := NewHolder(Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.Watch(ctx, path, nil))

	require.NoError(t, os.WriteFile(path, []byte("roles:\n  EDITOR: [analysis]\n"), 0o644))
	assert.Eventually(t, func() bool {
		return h.Get().Matrix.CanPerformTask(models.RoleEditor, "analysis") &&
			!h.Get().Matrix.CanPerformTask(models.RoleAdmin, "analysis")
	}, 3*time.Second, 20*time.Millisecond)
}
