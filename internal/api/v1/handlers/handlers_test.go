package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"

	"github.com/templify-app/templify/internal/db"
	"github.com/templify-app/templify/internal/db/models"
	"github.com/templify-app/templify/internal/db/repos"
	"github.com/templify-app/templify/internal/jobs"
	"github.com/templify-app/templify/internal/render"
	"github.com/templify-app/templify/internal/services"
)

type HandlersTestSuite struct {
	suite.Suite
	app      *fiber.App
	repo     *repos.TemplateRepository
	registry *jobs.Registry
	dataDir  string
	cancel   context.CancelFunc
}

func (s *HandlersTestSuite) SetupTest() {
	database, err := db.New(db.Options{Path: ":memory:"})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.dataDir = s.T().TempDir()
	outputDir := s.T().TempDir()

	s.repo = repos.NewTemplateRepository(database)
	renderer := render.NewRenderer(s.T().TempDir())
	verifier := services.NewVerifier(s.repo, s.dataDir)
	merger := services.NewMerger(s.repo, renderer, s.dataDir, outputDir)

	s.registry = jobs.NewRegistry()
	go s.registry.Run(ctx)
	scheduler := jobs.NewScheduler(s.registry, 2)

	s.app = fiber.New()
	group := s.app.Group("/api/v1")
	group.Post("/datasources/csv/verify", NewDatasourceHandler(scheduler, verifier).VerifyCSV)
	group.Post("/merge/start", NewMergeHandler(scheduler, merger).StartMerge)
	group.Get("/jobs/:id", NewJobHandler(s.registry).GetJobStatus)
	group.Get("/templates/:id/pdf", NewTemplateHandler(s.repo, renderer, outputDir).PreviewPDF)
}

func (s *HandlersTestSuite) TearDownTest() {
	s.cancel()
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (s *HandlersTestSuite) postJSON(path, body string) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

func (s *HandlersTestSuite) decode(resp *http.Response) map[string]interface{} {
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var result map[string]interface{}
	s.Require().NoError(json.Unmarshal(body, &result))
	return result
}

// awaitTerminal polls the job endpoint until the job reaches a terminal state.
func (s *HandlersTestSuite) awaitTerminal(jobID string) map[string]interface{} {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+jobID, nil)
		resp, err := s.app.Test(req, -1)
		s.Require().NoError(err)

		// the pending update may not have been applied yet
		if resp.StatusCode == fiber.StatusNotFound {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		result := s.decode(resp)
		data, ok := result["data"].(map[string]interface{})
		s.Require().True(ok)
		state := data["state"].(string)
		if state == "completed" || state == "failed" {
			return data
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.T().Fatal("job did not reach a terminal state")
	return nil
}

func (s *HandlersTestSuite) seedTemplate(tmpl models.Template, csv string) {
	s.Require().NoError(s.repo.Save(context.Background(), &tmpl))
	if csv != "" {
		path := filepath.Join(s.dataDir, tmpl.DataFileName(*tmpl.DatasourceMD5))
		s.Require().NoError(os.WriteFile(path, []byte(csv), 0o644))
	}
}

func (s *HandlersTestSuite) TestVerifyCSVLifecycle() {
	md5 := "abc"
	s.seedTemplate(models.Template{ID: "t1", DatasourceMD5: &md5},
		"name,email\nAlice,alice@x.com\nBob,bob@y.org\n")

	resp := s.postJSON("/api/v1/datasources/csv/verify", `{"template_id":"t1"}`)
	s.Equal(fiber.StatusAccepted, resp.StatusCode)

	result := s.decode(resp)
	s.Equal("success", result["slug"])
	jobID := result["data"].(map[string]interface{})["job_id"].(string)
	s.NotEmpty(jobID)

	data := s.awaitTerminal(jobID)
	s.Equal("completed", data["state"])
	s.Contains(data["payload"], "email")
}

func (s *HandlersTestSuite) TestVerifyCSVRequiresTemplateID() {
	resp := s.postJSON("/api/v1/datasources/csv/verify", `{}`)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	s.Equal("invalid-input", s.decode(resp)["slug"])
}

func (s *HandlersTestSuite) TestStartMergeLifecycle() {
	md5 := "abc"
	s.seedTemplate(models.Template{
		ID:            "t1",
		Text:          "Hello {{name}}",
		DatasourceMD5: &md5,
		Verified:      models.VerificationAttempted,
	}, "name\nAlice\nBob\n")

	resp := s.postJSON("/api/v1/merge/start", `{"template_id":"t1"}`)
	s.Equal(fiber.StatusAccepted, resp.StatusCode)

	jobID := s.decode(resp)["data"].(map[string]interface{})["job_id"].(string)
	data := s.awaitTerminal(jobID)
	s.Equal("completed", data["state"])
	s.Equal("Merge completed successfully", data["payload"])
}

func (s *HandlersTestSuite) TestMergeFailureSurfacesInJobStatus() {
	s.seedTemplate(models.Template{ID: "t1"}, "")

	resp := s.postJSON("/api/v1/merge/start", `{"template_id":"t1"}`)
	s.Equal(fiber.StatusAccepted, resp.StatusCode)

	jobID := s.decode(resp)["data"].(map[string]interface{})["job_id"].(string)
	data := s.awaitTerminal(jobID)
	s.Equal("failed", data["state"])
	s.Contains(data["message"], "has not been verified")
}

func (s *HandlersTestSuite) TestGetJobStatusNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/unknown", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(fiber.StatusNotFound, resp.StatusCode)
}

func (s *HandlersTestSuite) TestPreviewPDF() {
	s.seedTemplate(models.Template{ID: "t1", Text: "Hello *there*\n- a bullet"}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates/t1/pdf", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal("%PDF", string(body[:4]))
}

func (s *HandlersTestSuite) TestPreviewPDFNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates/missing/pdf", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(fiber.StatusNotFound, resp.StatusCode)
}
