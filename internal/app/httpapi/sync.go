package httpapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alpex-ai/housing-intelligence/internal/app/services/ingest"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/zillow"
)

func (h *handler) syncFRED(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, "Data sync completed", h.app.Ingest.SyncFRED)
}

func (h *handler) syncAll(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, "Comprehensive data sync completed", h.app.Ingest.SyncAll)
}

func (h *handler) syncHistory(w http.ResponseWriter, r *http.Request) {
	// zero falls back to the ingest default
	years, err := queryInt(r, "years", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.runSync(w, r, "Historical data sync completed", func(ctx context.Context) (ingest.Report, error) {
		return h.app.Ingest.SyncHistory(ctx, years)
	})
}

func (h *handler) runSync(w http.ResponseWriter, r *http.Request, message string, job func(context.Context) (ingest.Report, error)) {
	report, err := job(r.Context())
	if err != nil {
		h.log.WithError(err).WithField("job", report.Job).Error("sync request failed")
		writeFailure(w, "Sync failed", err)
		return
	}
	h.writeSuccess(w, message, report)
}

func (h *handler) seed(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Seed.SeedAll(r.Context())
	if err != nil {
		h.log.WithError(err).Error("seed request failed")
		writeFailure(w, "Seeding failed", err)
		return
	}
	h.writeSuccess(w, "Historical data seeding completed", report)
}

// importZHVI loads a ZHVI CSV from the request body, or from the configured
// URL when the body is empty. Chunked uploads carry no Content-Length, so the
// body is peeked instead.
func (h *handler) importZHVI(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body := bufio.NewReader(r.Body)
	_, peekErr := body.Peek(1)
	if peekErr != nil && !errors.Is(peekErr, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read request body: %w", peekErr))
		return
	}

	var (
		report zillow.ImportReport
		err    error
	)
	switch {
	case peekErr == nil:
		report, err = h.app.Importer.Import(r.Context(), body)
	case h.zhviURL != "":
		report, err = h.app.Importer.ImportURL(r.Context(), h.zhviURL)
	default:
		err = fmt.Errorf("no CSV body and no ZHVI URL configured")
	}
	if err != nil {
		h.log.WithError(err).Error("zhvi import failed")
		writeFailure(w, "Import failed", err)
		return
	}
	h.writeSuccess(w, "ZHVI import completed", report)
}

func (h *handler) writeSuccess(w http.ResponseWriter, message string, report any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   message,
		"timestamp": h.clock.Now().UTC(),
		"report":    report,
	})
}

func writeFailure(w http.ResponseWriter, msg string, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   msg,
		"details": err.Error(),
	})
}
