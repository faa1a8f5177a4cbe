// Package zillow imports Zillow Home Value Index (ZHVI) metro CSV exports.
package zillow

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
	"github.com/alpex-ai/housing-intelligence/internal/app/metrics"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

// BatchSize caps the rows sent in one insert.
const BatchSize = 500

const table = "metro_zhvi"

var dateColumn = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var requiredColumns = []string{"RegionID", "SizeRank", "RegionName", "RegionType", "StateName"}

// ImportReport summarises an import. Inserted excludes rows that already
// existed.
type ImportReport struct {
	Regions  int `json:"regions"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Importer loads ZHVI rows into a MetroStore.
type Importer struct {
	store  storage.MetroStore
	client *http.Client
	log    *logger.Logger
}

// NewImporter constructs an importer. A nil client uses a client with a
// five minute timeout.
func NewImporter(store storage.MetroStore, client *http.Client, log *logger.Logger) *Importer {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if log == nil {
		log = logger.NewDefault("zillow")
	}
	return &Importer{store: store, client: client, log: log}
}

// ImportURL downloads a ZHVI CSV and imports it.
func (i *Importer) ImportURL(ctx context.Context, url string) (ImportReport, error) {
	if strings.TrimSpace(url) == "" {
		return ImportReport{}, errors.New("zhvi url is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ImportReport{}, fmt.Errorf("build zhvi request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return ImportReport{}, fmt.Errorf("download zhvi: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ImportReport{}, fmt.Errorf("download zhvi: status %d", resp.StatusCode)
	}
	return i.Import(ctx, resp.Body)
}

// header maps the fixed columns to their index and lists the date columns in
// ascending order.
type header struct {
	index map[string]int
	dates []dateCol
}

type dateCol struct {
	pos  int
	date time.Time
}

func parseHeader(row []string) (header, error) {
	h := header{index: make(map[string]int, len(requiredColumns))}
	for pos, name := range row {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if dateColumn.MatchString(name) {
			d, err := time.Parse(housing.DateLayout, name)
			if err != nil {
				return header{}, fmt.Errorf("date column %q: %w", name, err)
			}
			h.dates = append(h.dates, dateCol{pos: pos, date: d})
			continue
		}
		h.index[name] = pos
	}
	for _, col := range requiredColumns {
		if _, ok := h.index[col]; !ok {
			return header{}, fmt.Errorf("missing column %s", col)
		}
	}
	if len(h.dates) == 0 {
		return header{}, errors.New("no date columns")
	}
	sort.Slice(h.dates, func(a, b int) bool { return h.dates[a].date.Before(h.dates[b].date) })
	return h, nil
}

func (h header) field(row []string, col string) string {
	pos := h.index[col]
	if pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// Import reads a ZHVI CSV, storing one value per non-empty date cell. Insert
// failures are logged and counted per batch.
func (i *Importer) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err != nil {
		return ImportReport{}, fmt.Errorf("read zhvi header: %w", err)
	}
	h, err := parseHeader(first)
	if err != nil {
		return ImportReport{}, fmt.Errorf("zhvi header: %w", err)
	}
	i.log.WithField("from", h.dates[0].date.Format(housing.DateLayout)).
		WithField("to", h.dates[len(h.dates)-1].date.Format(housing.DateLayout)).
		Info("importing zhvi")

	var report ImportReport
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return report, fmt.Errorf("read zhvi line %d: %w", line, err)
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		values, err := h.values(row)
		if err != nil {
			i.log.WithError(err).WithField("line", line).Warn("skipping zhvi row")
			report.Skipped++
			continue
		}
		if len(values) == 0 {
			continue
		}
		report.Regions++
		i.insert(ctx, values, &report)
	}

	i.log.WithField("regions", report.Regions).
		WithField("inserted", report.Inserted).
		WithField("failed", report.Failed).
		Info("zhvi import finished")
	return report, nil
}

func (h header) values(row []string) ([]metro.Value, error) {
	regionID, err := strconv.Atoi(h.field(row, "RegionID"))
	if err != nil {
		return nil, fmt.Errorf("region id: %w", err)
	}
	sizeRank, _ := strconv.Atoi(h.field(row, "SizeRank"))
	base := metro.Value{
		RegionID:   regionID,
		SizeRank:   sizeRank,
		RegionName: h.field(row, "RegionName"),
		RegionType: h.field(row, "RegionType"),
		StateName:  h.field(row, "StateName"),
	}

	var out []metro.Value
	for _, col := range h.dates {
		if col.pos >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col.pos])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			continue
		}
		value := base
		value.Date = col.date
		value.HomeValue = v
		out = append(out, value)
	}
	return out, nil
}

func (i *Importer) insert(ctx context.Context, values []metro.Value, report *ImportReport) {
	for start := 0; start < len(values); start += BatchSize {
		end := min(start+BatchSize, len(values))
		batch := values[start:end]
		n, err := i.store.InsertMetroValues(ctx, batch)
		if err != nil {
			i.log.WithError(err).
				WithField("region", batch[0].RegionName).
				WithField("rows", len(batch)).
				Warn("zhvi batch insert failed")
			report.Failed += len(batch)
			metrics.RecordSyncRecords(table, "failed", len(batch))
			continue
		}
		report.Inserted += n
		metrics.RecordSyncRecords(table, "upserted", n)
		if skipped := len(batch) - n; skipped > 0 {
			metrics.RecordSyncRecords(table, "skipped", skipped)
		}
	}
}
