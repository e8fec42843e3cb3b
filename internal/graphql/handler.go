package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"

	"pitunes/internal/catalog"
)

// Handler serves the GraphQL endpoint. POST carries the standard JSON body;
// GET with a query parameter is accepted for ad-hoc reads.
type Handler struct {
	schema  graphql.Schema
	catalog *catalog.Catalog
	logger  *logrus.Logger
}

func NewHandler(schema graphql.Schema, c *catalog.Catalog) *Handler {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Handler{schema: schema, catalog: c, logger: logger}
}

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	switch r.Method {
	case http.MethodGet:
		req.Query = r.URL.Query().Get("query")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if req.Query == "" {
		http.Error(w, "missing query", http.StatusBadRequest)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        withLoaders(r.Context(), h.catalog),
	})
	if len(result.Errors) > 0 {
		h.logger.WithFields(logrus.Fields{
			"operation": req.OperationName,
			"errors":    len(result.Errors),
		}).Warn("GraphQL request finished with errors")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.WithError(err).Error("Failed to encode GraphQL response")
	}
}
