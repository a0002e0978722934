package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/larkvi/esgrade/internal/app"
	"github.com/larkvi/esgrade/internal/handlers"
)

func main() {
	service, err := app.NewService("config.toml")
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	if err := service.Store.ApplyMigrations(service.Config.Database.MigrationsDir); err != nil {
		logger.Error.Fatalf("Failed to apply migrations: %v", err)
	}

	evalHandler := handlers.NewEvaluationHandler(service)
	statsHandler := handlers.NewStatsHandler(service)
	catalogHandler := handlers.NewCatalogHandler(service)

	http.HandleFunc("POST /api/v1/evaluations", evalHandler.HandleCreateOrUpdate)
	http.HandleFunc("GET /api/v1/evaluations", evalHandler.HandleList)
	http.HandleFunc("GET /api/v1/evaluations/averages", statsHandler.HandleGlobalAverages)
	http.HandleFunc("GET /api/v1/evaluations/ranking", statsHandler.HandleRanking)
	http.HandleFunc("GET /api/v1/evaluations/{id}", evalHandler.HandleGet)
	http.HandleFunc("POST /api/v1/evaluations/{id}/submit", evalHandler.HandleSubmit)
	http.HandleFunc("DELETE /api/v1/evaluations/{id}", evalHandler.HandleDelete)

	http.HandleFunc("GET /api/v1/organizations", catalogHandler.HandleListOrganizations)
	http.HandleFunc("POST /api/v1/organizations", catalogHandler.HandleCreateOrganization)
	http.HandleFunc("GET /api/v1/organizations/{id}/scores", statsHandler.HandleScorecard)
	http.HandleFunc("GET /api/v1/dimensions", catalogHandler.HandleListDimensions)
	http.HandleFunc("GET /api/v1/dimensions/{id}/questions", catalogHandler.HandleListQuestions)

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting esgrade server on %s", service.Config.Server.Port)
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("esgrade server failed: %v", err)
	}
}
