// Package services implements the blocking job bodies of the application:
// CSV data-source verification and mail-merge rendering.
package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/templify-app/templify/internal/csvdata"
	"github.com/templify-app/templify/internal/db/models"
	"github.com/templify-app/templify/internal/db/repos"
	"github.com/templify-app/templify/internal/logger"
)

// ChunkSize is the number of CSV lines validated as a unit. A chunk is fully
// processed, including its progress update, before the next chunk starts.
const ChunkSize = 250_000

// maxLineBytes bounds the scanner buffer for a single CSV line.
const maxLineBytes = 1024 * 1024

// Verifier is the CSV verification engine. It infers a column schema from
// the first data row and validates every remaining row against it, keeping
// the persisted verification state consistent on both success and failure.
type Verifier struct {
	repo    *repos.TemplateRepository
	dataDir string
}

// NewVerifier creates a verification engine reading uploaded CSV files from dataDir
func NewVerifier(repo *repos.TemplateRepository, dataDir string) *Verifier {
	return &Verifier{repo: repo, dataDir: dataDir}
}

// scanLine is one data line with its zero-based index in the chunked scan
type scanLine struct {
	index int
	text  string
}

// rowError describes the first invalid row found in a chunk
type rowError struct {
	index  int // zero-based scan index
	title  string
	reason string
}

// row returns the 1-based CSV row number, offset by the lines consumed
// before the scan began
func (e *rowError) row() int {
	return e.index + csvdata.DataRowOffset + 1
}

// Verify is the blocking body of a verification job. It returns the inferred
// column schema as a JSON payload, streaming progress through report as a
// count of lines processed.
func (v *Verifier) Verify(ctx context.Context, templateID string, report func(uint)) (string, error) {
	start := time.Now()

	tmpl, err := v.repo.GetByID(ctx, templateID)
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	// Fast path: data source unchanged and already verified. Only the header
	// and first data line are read, and nothing is written back.
	if tmpl.UpToDate() {
		payload, err := v.inferSchemaOnly(tmpl, *tmpl.DatasourceMD5)
		if err != nil {
			return "", err
		}
		logger.Infof("verification finished (fast path) for template %s in %s", tmpl.ID, time.Since(start))
		return payload, nil
	}

	// A set flag without matching hashes is a leftover from a partial
	// failure; reset it and run the full scan.
	if tmpl.Verified != models.VerificationPending {
		if err := v.repo.ResetVerified(ctx, tmpl.ID); err != nil {
			return "", fmt.Errorf("%w: failed to reset verified flag: %v", ErrStore, err)
		}
		logger.Warnf("template %s had a stale verified flag; reset and re-verifying", tmpl.ID)
	}

	if tmpl.DatasourceMD5 == nil {
		err := fmt.Errorf("%w: no associated data file to verify", ErrPrecondition)
		return "", v.failWithRollback(ctx, tmpl, err)
	}

	file, err := os.Open(filepath.Join(v.dataDir, tmpl.DataFileName(*tmpl.DatasourceMD5)))
	if err != nil {
		return "", fmt.Errorf("%w: CSV file not found", ErrNotFound)
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReader(file)
	headerLine, firstDataLine, err := csvdata.ReadHeaderAndFirstRow(reader)
	if err != nil {
		return "", v.failWithRollback(ctx, tmpl, err)
	}

	delimiter := csvdata.DetectDelimiter(headerLine)
	titles, err := csvdata.ValidateAndNormalizeTitles(headerLine, delimiter)
	if err != nil {
		return "", v.failWithRollback(ctx, tmpl, fmt.Errorf("header validation failed: %w", err))
	}

	titleIndex := make(map[string]int, len(titles))
	for i, t := range titles {
		titleIndex[t] = i
	}
	columns := csvdata.InferColumnChecks(titles, firstDataLine, delimiter)

	// Chunked scan of the remaining rows. Chunk k is fully validated,
	// including its progress update, before chunk k+1 starts.
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	chunk := make([]scanLine, 0, ChunkSize)
	linesProcessed := 0
	index := 0
	for scanner.Scan() {
		chunk = append(chunk, scanLine{index: index, text: scanner.Text()})
		index++
		if len(chunk) == ChunkSize {
			if invalid := findFirstInvalid(chunk, columns, titleIndex, delimiter); invalid != nil {
				return "", v.failInvalidRow(ctx, tmpl, invalid, start)
			}
			linesProcessed += len(chunk)
			chunk = chunk[:0]
			report(uint(linesProcessed))
		}
	}
	if err := scanner.Err(); err != nil {
		return "", v.failWithRollback(ctx, tmpl, fmt.Errorf("failed to read CSV: %w", err))
	}

	if len(chunk) > 0 {
		if invalid := findFirstInvalid(chunk, columns, titleIndex, delimiter); invalid != nil {
			return "", v.failInvalidRow(ctx, tmpl, invalid, start)
		}
		linesProcessed += len(chunk)
		report(uint(linesProcessed))
	}

	if err := v.repo.MarkVerified(ctx, tmpl.ID, tmpl.DatasourceMD5); err != nil {
		return "", fmt.Errorf("%w: failed to persist verification: %v", ErrStore, err)
	}

	payload, err := marshalSchema(columns)
	if err != nil {
		return "", err
	}
	logger.Infof("verification finished for template %s in %s (%d data rows)",
		tmpl.ID, time.Since(start), linesProcessed+1)
	return payload, nil
}

// inferSchemaOnly implements the fast path: read the header and first data
// line, infer the schema, and return it without touching persisted state.
func (v *Verifier) inferSchemaOnly(tmpl *models.Template, md5 string) (string, error) {
	file, err := os.Open(filepath.Join(v.dataDir, tmpl.DataFileName(md5)))
	if err != nil {
		return "", fmt.Errorf("%w: CSV file not found", ErrNotFound)
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReader(file)
	headerLine, firstDataLine, err := csvdata.ReadHeaderAndFirstRow(reader)
	if err != nil {
		return "", err
	}

	delimiter := csvdata.DetectDelimiter(headerLine)
	titles, err := csvdata.ValidateAndNormalizeTitles(headerLine, delimiter)
	if err != nil {
		return "", fmt.Errorf("header validation failed: %w", err)
	}

	return marshalSchema(csvdata.InferColumnChecks(titles, firstDataLine, delimiter))
}

// failWithRollback reverts the persisted verification state and returns the
// original error, appending the rollback failure to it if the write fails.
func (v *Verifier) failWithRollback(ctx context.Context, tmpl *models.Template, cause error) error {
	if err := v.repo.Rollback(ctx, tmpl.ID, tmpl.LastVerifiedMD5); err != nil {
		return fmt.Errorf("%v; rollback failed: %v", cause, err)
	}
	return cause
}

func (v *Verifier) failInvalidRow(ctx context.Context, tmpl *models.Template, invalid *rowError, start time.Time) error {
	cause := fmt.Errorf("first invalid row at: row %d, column '%s': %s",
		invalid.row(), invalid.title, invalid.reason)
	logger.Infof("verification finished for template %s in %s", tmpl.ID, time.Since(start))
	return v.failWithRollback(ctx, tmpl, cause)
}

// findFirstInvalid searches a chunk for the lowest-indexed invalid row. The
// chunk is split into contiguous shards scanned in parallel; each shard stops
// at its first invalid row and the reducer takes the minimum index, so the
// result is the earliest invalid row of the chunk.
func findFirstInvalid(chunk []scanLine, columns []csvdata.ColumnCheck, titleIndex map[string]int, delimiter rune) *rowError {
	shards := runtime.NumCPU()
	if shards > len(chunk) {
		shards = len(chunk)
	}
	if shards <= 1 {
		return scanShard(chunk, columns, titleIndex, delimiter)
	}

	results := make([]*rowError, shards)
	size := (len(chunk) + shards - 1) / shards

	var wg sync.WaitGroup
	for s := 0; s < shards; s++ {
		lo := s * size
		hi := lo + size
		if hi > len(chunk) {
			hi = len(chunk)
		}
		wg.Add(1)
		go func(s int, shard []scanLine) {
			defer wg.Done()
			results[s] = scanShard(shard, columns, titleIndex, delimiter)
		}(s, chunk[lo:hi])
	}
	wg.Wait()

	var first *rowError
	for _, r := range results {
		if r != nil && (first == nil || r.index < first.index) {
			first = r
		}
	}
	return first
}

// scanShard validates rows sequentially and returns the first invalid one
func scanShard(shard []scanLine, columns []csvdata.ColumnCheck, titleIndex map[string]int, delimiter rune) *rowError {
	for _, line := range shard {
		record := strings.Split(line.text, string(delimiter))
		for _, col := range columns {
			colIdx, ok := titleIndex[col.Title]
			if !ok {
				return &rowError{index: line.index, title: col.Title, reason: "header title not found"}
			}
			if colIdx >= len(record) {
				return &rowError{index: line.index, title: col.Title, reason: "column missing in row"}
			}
			cell := csvdata.NormalizeCell(record[colIdx])
			if !csvdata.ValidateValue(col.PlaceholderType, cell) {
				return &rowError{
					index: line.index,
					title: col.Title,
					reason: fmt.Sprintf("value '%s' does not match expected type: %s",
						cell, col.PlaceholderType.Label()),
				}
			}
		}
	}
	return nil
}

func marshalSchema(columns []csvdata.ColumnCheck) (string, error) {
	payload, err := json.Marshal(columns)
	if err != nil {
		return "", fmt.Errorf("failed to encode column schema: %w", err)
	}
	return string(payload), nil
}
