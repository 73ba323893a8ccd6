package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templify-app/templify/internal/db"
	"github.com/templify-app/templify/internal/db/models"
	"github.com/templify-app/templify/internal/db/repos"
	"github.com/templify-app/templify/internal/render"
)

type mergeEnv struct {
	ctx       context.Context
	repo      *repos.TemplateRepository
	merger    *Merger
	dataDir   string
	outputDir string
}

func newMergeEnv(t *testing.T) *mergeEnv {
	t.Helper()
	database, err := db.New(db.Options{Path: ":memory:"})
	require.NoError(t, err)

	dataDir := t.TempDir()
	outputDir := t.TempDir()
	repo := repos.NewTemplateRepository(database)
	renderer := render.NewRenderer(t.TempDir())
	return &mergeEnv{
		ctx:       context.Background(),
		repo:      repo,
		merger:    NewMerger(repo, renderer, dataDir, outputDir),
		dataDir:   dataDir,
		outputDir: outputDir,
	}
}

func (e *mergeEnv) seed(t *testing.T, tmpl models.Template, csv string) *models.Template {
	t.Helper()
	require.NoError(t, e.repo.Save(e.ctx, &tmpl))
	if csv != "" {
		require.NotNil(t, tmpl.DatasourceMD5)
		path := filepath.Join(e.dataDir, tmpl.DataFileName(*tmpl.DatasourceMD5))
		require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	}
	return &tmpl
}

func TestMergeProducesOneDocumentPerRow(t *testing.T) {
	env := newMergeEnv(t)
	env.seed(t, models.Template{
		ID:            "t1",
		Text:          "Hello {{name}}, your address is {{email}}",
		DatasourceMD5: md5Ptr("abc"),
		Verified:      models.VerificationAttempted,
	}, "name,email\nAlice,alice@x.com\nBob,bob@y.org\n")

	var reports []uint
	payload, err := env.merger.Merge(env.ctx, "t1", "job-9", func(p uint) { reports = append(reports, p) })
	require.NoError(t, err)
	assert.Equal(t, "Merge completed successfully", payload)
	assert.Equal(t, []uint{50, 100}, reports)

	for _, name := range []string{"job-9_0.pdf", "job-9_1.pdf"} {
		data, err := os.ReadFile(filepath.Join(env.outputDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, "%PDF", string(data[:4]))
	}

	entries, err := os.ReadDir(env.outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMergeRequiresVerification(t *testing.T) {
	env := newMergeEnv(t)
	env.seed(t, models.Template{ID: "t1", DatasourceMD5: md5Ptr("abc")},
		"name\nAlice\n")

	_, err := env.merger.Merge(env.ctx, "t1", "job-1", func(uint) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorContains(t, err, "has not been verified")
}

func TestMergeRequiresDatasource(t *testing.T) {
	env := newMergeEnv(t)
	env.seed(t, models.Template{ID: "t1", Verified: models.VerificationAttempted}, "")

	_, err := env.merger.Merge(env.ctx, "t1", "job-1", func(uint) {})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestMergeShortRowStillRenders(t *testing.T) {
	env := newMergeEnv(t)
	env.seed(t, models.Template{
		ID:            "t1",
		Text:          "{{name}} / {{email}}",
		DatasourceMD5: md5Ptr("abc"),
		Verified:      models.VerificationAttempted,
	}, "name,email\nAlice\n")

	payload, err := env.merger.Merge(env.ctx, "t1", "job-2", func(uint) {})
	require.NoError(t, err)
	assert.Equal(t, "Merge completed successfully", payload)

	_, statErr := os.Stat(filepath.Join(env.outputDir, "job-2_0.pdf"))
	assert.NoError(t, statErr)
}

func TestRowValues(t *testing.T) {
	t.Run("keeps raw cell values", func(t *testing.T) {
		values := rowValues([]string{"name", "note"}, []string{" Alice ", `"quoted"`})
		assert.Equal(t, map[string]string{"name": " Alice ", "note": `"quoted"`}, values)
	})

	t.Run("missing cells are absent so their tokens survive", func(t *testing.T) {
		values := rowValues([]string{"name", "email"}, []string{"Alice"})
		_, present := values["email"]
		assert.False(t, present)

		out := render.SubstitutePlaceholders("{{name}} <{{email}}>", values)
		assert.Equal(t, "Alice <{{email}}>", out)
	})
}

func TestMergeEmptyFileFails(t *testing.T) {
	env := newMergeEnv(t)
	env.seed(t, models.Template{
		ID:            "t1",
		DatasourceMD5: md5Ptr("abc"),
		Verified:      models.VerificationAttempted,
	}, "name,email\n")

	_, err := env.merger.Merge(env.ctx, "t1", "job-3", func(uint) {})
	require.Error(t, err)
	assert.ErrorContains(t, err, "does not contain any data rows")
}
