package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Ledger Workflow Engine API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Ledger Workflow Engine API",
    "version": "1.0.0",
    "description": "Every route except /health and /swagger needs basic channel credentials plus the X-User-ID, X-User-Role and X-Company-ID headers."
  },
  "components": {
    "securitySchemes": {
      "BasicAuth": {"type": "http", "scheme": "basic"}
    },
    "parameters": {
      "id": {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}
    },
    "responses": {
      "BadRequest": {"description": "Validation error"},
      "Forbidden": {"description": "Role lacks the capability"},
      "NotFound": {"description": "Not found"},
      "Conflict": {"description": "State or version conflict"}
    }
  },
  "security": [{"BasicAuth": []}],
  "paths": {
    "/health": {"get": {"summary": "Liveness and database reachability", "security": [], "responses": {"200": {"description": "OK"}, "503": {"description": "Unavailable"}}}},
    "/documents": {
      "post": {"summary": "Create a draft document", "responses": {"201": {"description": "Created"}, "400": {"$ref": "#/components/responses/BadRequest"}}},
      "get": {
        "summary": "List documents",
        "parameters": [
          {"name": "type", "in": "query", "schema": {"type": "string", "enum": ["transaction", "voucher"]}},
          {"name": "status", "in": "query", "schema": {"type": "string"}},
          {"name": "createdBy", "in": "query", "schema": {"type": "string"}},
          {"name": "from", "in": "query", "schema": {"type": "string", "format": "date"}},
          {"name": "to", "in": "query", "schema": {"type": "string", "format": "date"}},
          {"name": "limit", "in": "query", "schema": {"type": "integer"}},
          {"name": "offset", "in": "query", "schema": {"type": "integer"}}
        ],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/documents/{id}": {
      "parameters": [{"$ref": "#/components/parameters/id"}],
      "get": {"summary": "Get a document", "responses": {"200": {"description": "OK"}, "404": {"$ref": "#/components/responses/NotFound"}}},
      "put": {"summary": "Edit a draft or rejected document", "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/components/responses/Conflict"}}},
      "delete": {"summary": "Delete a draft document", "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/components/responses/Conflict"}}}
    },
    "/documents/{id}/submit": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Submit for approval", "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/documents/{id}/post": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Post an approved document", "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/components/responses/Conflict"}}}},
    "/documents/{id}/void": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Void a posted document", "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/components/responses/Conflict"}}}},
    "/documents/{id}/reverse": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Reverse a posted document on a date", "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/components/responses/Conflict"}}}},
    "/approvals/pending": {"get": {"summary": "Approvals waiting on the caller", "responses": {"200": {"description": "OK"}}}},
    "/approvals/{id}": {"parameters": [{"$ref": "#/components/parameters/id"}], "get": {"summary": "Get an approval instance", "responses": {"200": {"description": "OK"}}}},
    "/approvals/{id}/decisions": {
      "parameters": [{"$ref": "#/components/parameters/id"}],
      "post": {"summary": "Approve or reject the current step", "responses": {"200": {"description": "OK"}, "403": {"$ref": "#/components/responses/Forbidden"}, "409": {"$ref": "#/components/responses/Conflict"}}}
    },
    "/approvals/{id}/cancel": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Withdraw a pending approval and return the document to draft", "responses": {"200": {"description": "OK"}, "403": {"$ref": "#/components/responses/Forbidden"}, "409": {"$ref": "#/components/responses/Conflict"}}}},
    "/approval-templates": {
      "post": {"summary": "Create an approval template", "responses": {"201": {"description": "Created"}}},
      "get": {"summary": "List approval templates", "responses": {"200": {"description": "OK"}}}
    },
    "/accounts": {
      "post": {"summary": "Create a ledger account", "responses": {"201": {"description": "Created"}}},
      "get": {"summary": "List the chart of accounts", "responses": {"200": {"description": "OK"}}}
    },
    "/accounts/{id}": {"parameters": [{"$ref": "#/components/parameters/id"}], "get": {"summary": "Get an account", "responses": {"200": {"description": "OK"}}}},
    "/accounts/{id}/status": {"parameters": [{"$ref": "#/components/parameters/id"}], "put": {"summary": "Activate or deactivate an account", "responses": {"200": {"description": "OK"}}}},
    "/journal-entries": {"post": {"summary": "Post a manual journal entry", "responses": {"201": {"description": "Created"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/journal-entries/{id}": {"parameters": [{"$ref": "#/components/parameters/id"}], "get": {"summary": "Get a journal entry", "responses": {"200": {"description": "OK"}}}},
    "/journal-entries/{id}/reverse": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Reverse a manual journal entry", "responses": {"201": {"description": "Created"}, "409": {"$ref": "#/components/responses/Conflict"}}}},
    "/ledger/general": {
      "get": {
        "summary": "General ledger with running balances",
        "parameters": [
          {"name": "accountId", "in": "query", "schema": {"type": "array", "items": {"type": "string"}}, "explode": true},
          {"name": "from", "in": "query", "schema": {"type": "string", "format": "date"}},
          {"name": "to", "in": "query", "schema": {"type": "string", "format": "date"}},
          {"name": "sourceType", "in": "query", "schema": {"type": "string"}},
          {"name": "limit", "in": "query", "schema": {"type": "integer"}},
          {"name": "offset", "in": "query", "schema": {"type": "integer"}}
        ],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/ledger/trial-balance": {
      "get": {
        "summary": "Trial balance",
        "parameters": [
          {"name": "asOf", "in": "query", "schema": {"type": "string", "format": "date"}},
          {"name": "includeZero", "in": "query", "schema": {"type": "boolean"}}
        ],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/ledger/verify": {"get": {"summary": "Compare stored balances with posted lines", "responses": {"200": {"description": "OK"}}}},
    "/recurring": {
      "post": {"summary": "Create a recurring definition", "responses": {"201": {"description": "Created"}}},
      "get": {"summary": "List recurring definitions", "parameters": [{"name": "active", "in": "query", "schema": {"type": "boolean"}}], "responses": {"200": {"description": "OK"}}}
    },
    "/recurring/process-due": {"post": {"summary": "Run the due-recurring pass now", "responses": {"200": {"description": "OK"}, "202": {"description": "A pass is already running"}, "403": {"$ref": "#/components/responses/Forbidden"}}}},
    "/recurring/{id}": {
      "parameters": [{"$ref": "#/components/parameters/id"}],
      "get": {"summary": "Get a recurring definition", "responses": {"200": {"description": "OK"}}},
      "put": {"summary": "Edit a paused recurring definition", "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/components/responses/Conflict"}}}
    },
    "/recurring/{id}/pause": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Pause", "responses": {"200": {"description": "OK"}}}},
    "/recurring/{id}/resume": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Resume", "responses": {"200": {"description": "OK"}}}},
    "/recurring/{id}/execute": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Generate the pending occurrence now", "responses": {"200": {"description": "OK"}}}},
    "/budgets": {
      "post": {"summary": "Create a budget", "responses": {"201": {"description": "Created"}}},
      "get": {"summary": "List budgets", "responses": {"200": {"description": "OK"}}}
    },
    "/budgets/{id}": {"parameters": [{"$ref": "#/components/parameters/id"}], "get": {"summary": "Get a budget", "responses": {"200": {"description": "OK"}}}},
    "/budgets/{id}/approve": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Approve a draft budget", "responses": {"200": {"description": "OK"}}}},
    "/budgets/{id}/activate": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Activate an approved budget", "responses": {"200": {"description": "OK"}}}},
    "/budgets/{id}/close": {"parameters": [{"$ref": "#/components/parameters/id"}], "post": {"summary": "Close an active budget", "responses": {"200": {"description": "OK"}}}},
    "/budgets/{id}/details": {"parameters": [{"$ref": "#/components/parameters/id"}], "put": {"summary": "Replace budget details, recording a revision once approved", "responses": {"200": {"description": "OK"}}}},
    "/budgets/{id}/revisions": {"parameters": [{"$ref": "#/components/parameters/id"}], "get": {"summary": "Budget revision history", "responses": {"200": {"description": "OK"}}}},
    "/budgets/{id}/variance": {"parameters": [{"$ref": "#/components/parameters/id"}], "get": {"summary": "Planned against posted actuals", "responses": {"200": {"description": "OK"}}}}
  }
}`
