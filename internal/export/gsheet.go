package export

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/larkvi/esgrade/internal/app"
	"github.com/larkvi/esgrade/internal/stats"
	"github.com/larkvi/esgrade/internal/store"
)

// GSheetExporter periodically pushes the current ranking and global
// averages to a Google Sheet. Aggregates stay recomputed-on-demand; the
// sheet is an outbound snapshot, not a materialized view the API reads.
type GSheetExporter struct {
	config        *app.Config
	store         store.EvaluationStore
	scheduler     *gocron.Scheduler
	sheetsService *sheets.Service
}

func NewGSheetExporter(config *app.Config, st store.EvaluationStore) (*GSheetExporter, error) {
	ctx := context.Background()
	scheduler := gocron.NewScheduler(time.UTC)

	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(config.Export.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	exporter := &GSheetExporter{
		config:        config,
		store:         st,
		scheduler:     scheduler,
		sheetsService: svc,
	}

	_, err = scheduler.Cron(config.Export.Schedule).Do(func() {
		if err := exporter.Export(); err != nil {
			logger.Error.Printf("Export failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule export: %w", err)
	}

	scheduler.StartAsync()
	return exporter, nil
}

func (e *GSheetExporter) Export() error {
	rows, err := e.store.FetchResponseStats(store.StatFilter{
		SubmittedOnly: e.config.Export.SubmittedOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch response stats: %w", err)
	}

	dims, err := e.store.ListDimensions()
	if err != nil {
		return fmt.Errorf("failed to list dimensions: %w", err)
	}

	ranking := stats.Ranking(rows, e.config.Stats.RankingLimit, "")
	averages := stats.DimensionAverages(dims, rows)

	values := [][]interface{}{
		{"Rank", "Organization", "City", "Region", "Average", "Evaluations"},
	}
	for _, r := range ranking {
		values = append(values, []interface{}{
			r.Rank, r.OrganizationName, r.City, r.Region, r.Average, r.TotalEvaluations,
		})
	}
	values = append(values, []interface{}{})
	values = append(values, []interface{}{"Dimension", "Average", "Evaluations"})
	for _, a := range averages {
		var avg interface{} = ""
		if a.Average != nil {
			avg = *a.Average
		}
		values = append(values, []interface{}{a.DimensionName, avg, a.TotalEvaluations})
	}

	vr := &sheets.ValueRange{Values: values}
	rangeName := fmt.Sprintf("%s!A1", e.config.Export.SheetName)

	_, err = e.sheetsService.Spreadsheets.Values.
		Update(e.config.Export.SpreadsheetID, rangeName, vr).
		ValueInputOption("RAW").
		Do()
	if err != nil {
		return fmt.Errorf("failed to update sheet: %w", err)
	}

	logger.Info.Printf("Exported %d ranked organizations and %d dimension averages", len(ranking), len(averages))
	return nil
}

func (e *GSheetExporter) Stop() {
	e.scheduler.Stop()
}
