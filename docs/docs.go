// Package docs holds the generated swagger specification for the
// approval-review API. Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/approvals": {
            "get": {
                "produces": ["application/json"],
                "tags": ["approvals"],
                "summary": "List pending approval requests across all runs",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/approvals/{id}/decide": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["approvals"],
                "summary": "Approve or reject a pending request, applying master mutations on approval",
                "parameters": [
                    {"type": "string", "description": "Approval request ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/runs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Fetch one run's lifecycle record",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/runs/{id}/approvals": {
            "get": {
                "produces": ["application/json"],
                "tags": ["approvals"],
                "summary": "List a run's pending approval requests",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/runs/{id}/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List a run's audit log in emission order",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/runs/{id}/exceptions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List a run's detected exceptions",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/runs/{id}/mis": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Fetch a run's MIS report",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "GST Pipeline Review API",
	Description:      "Approval-review surface for the GST batch pipeline",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
