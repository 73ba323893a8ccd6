package services

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/templify-app/templify/internal/csvdata"
	"github.com/templify-app/templify/internal/db/repos"
	"github.com/templify-app/templify/internal/logger"
	"github.com/templify-app/templify/internal/render"
)

// Merger is the mail-merge pipeline. It renders one PDF per CSV data row by
// substituting the row's values into the template markup, reporting progress
// as a percentage of rows completed.
type Merger struct {
	repo      *repos.TemplateRepository
	renderer  *render.Renderer
	dataDir   string
	outputDir string
}

// NewMerger creates a merge pipeline reading CSV files from dataDir and
// writing rendered documents under outputDir.
func NewMerger(repo *repos.TemplateRepository, renderer *render.Renderer, dataDir, outputDir string) *Merger {
	return &Merger{repo: repo, renderer: renderer, dataDir: dataDir, outputDir: outputDir}
}

// Merge is the blocking body of a merge job. Output files are named
// {jobID}_{rowIndex}.pdf with zero-based row indices; any row failure aborts
// the whole job.
func (m *Merger) Merge(ctx context.Context, templateID, jobID string, report func(uint)) (string, error) {
	start := time.Now()

	tmpl, err := m.repo.GetByID(ctx, templateID)
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}
	if !tmpl.Attempted() || tmpl.DatasourceMD5 == nil {
		return "", fmt.Errorf("%w: template data source has not been verified", ErrPrecondition)
	}

	path := filepath.Join(m.dataDir, tmpl.DataFileName(*tmpl.DatasourceMD5))

	titles, delimiter, err := m.readHeader(path)
	if err != nil {
		return "", err
	}

	total, err := countDataRows(path)
	if err != nil {
		return "", err
	}
	if total == 0 {
		return "", fmt.Errorf("%w: CSV file does not contain any data rows", ErrPrecondition)
	}

	images, err := m.repo.Images(ctx, tmpl.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: CSV file not found", ErrNotFound)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	if !scanner.Scan() {
		return "", fmt.Errorf("failed to read header line")
	}

	rowIndex := 0
	for scanner.Scan() {
		if err := m.renderRow(tmpl.Text, images, titles, delimiter, scanner.Text(), jobID, rowIndex); err != nil {
			return "", fmt.Errorf("failed to generate PDF for row %d: %v", rowIndex+1, err)
		}
		rowIndex++
		report(uint(math.Round(float64(rowIndex) / float64(total) * 100)))
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read CSV: %w", err)
	}

	logger.Infof("merge finished for template %s in %s (%d documents)", tmpl.ID, time.Since(start), rowIndex)
	return "Merge completed successfully", nil
}

// readHeader reads and normalizes the header line so row values can be mapped
// to placeholder titles.
func (m *Merger) readHeader(path string) ([]string, rune, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: CSV file not found", ErrNotFound)
	}
	defer func() { _ = file.Close() }()

	headerLine, err := readLine(bufio.NewReader(file))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header line: %w", err)
	}

	delimiter := csvdata.DetectDelimiter(headerLine)
	titles, err := csvdata.ValidateAndNormalizeTitles(headerLine, delimiter)
	if err != nil {
		return nil, 0, fmt.Errorf("header validation failed: %w", err)
	}
	return titles, delimiter, nil
}

func (m *Merger) renderRow(markup string, images map[string][]byte, titles []string, delimiter rune, line, jobID string, rowIndex int) error {
	values := rowValues(titles, strings.Split(line, string(delimiter)))
	outputPath := filepath.Join(m.outputDir, fmt.Sprintf("%s_%d.pdf", jobID, rowIndex))
	return m.renderer.RenderDocument(render.SubstitutePlaceholders(markup, values), images, outputPath)
}

// rowValues maps each title to its raw cell value. Titles past the end of a
// short row are absent from the map, so their {{title}} tokens render
// untouched.
func rowValues(titles, record []string) map[string]string {
	values := make(map[string]string, len(titles))
	for i, title := range titles {
		if i < len(record) {
			values[title] = record[i]
		}
	}
	return values
}

// countDataRows counts the data lines of the CSV so progress can be reported
// as a percentage. The file is small relative to the rendering cost of each
// row, so a dedicated counting pass is cheap.
func countDataRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: CSV file not found", ErrNotFound)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	count := 0
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read CSV: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	return count - 1, nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
