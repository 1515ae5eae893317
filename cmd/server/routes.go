package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func (app *application) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(app.authenticate)

	r.HandleFunc("/health", app.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", app.handleWebSocket).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins:   app.Config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)
}
