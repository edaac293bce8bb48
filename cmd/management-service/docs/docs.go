// Package docs holds the Swagger document served at /swagger/*any.
// Regenerate with: swag init -g cmd/management-service/main.go -o cmd/management-service/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/alerts": {
            "post": {
                "description": "Create a frequency alert for a user. Criteria are validated and unknown keys are rejected.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["alerts"],
                "summary": "Create an alert configuration",
                "parameters": [
                    {
                        "description": "Alert configuration",
                        "name": "alert",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/alertconfig.CreateAlertRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/alertconfig.AlertConfiguration"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/alerts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["alerts"],
                "summary": "Get an alert configuration",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/alertconfig.AlertConfiguration"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Name and criteria may be changed independently. Criteria are replaced as a whole.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["alerts"],
                "summary": "Update an alert configuration",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true},
                    {
                        "description": "Changes",
                        "name": "alert",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/alertconfig.UpdateAlertRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/alertconfig.AlertConfiguration"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Soft delete: the alert stops being evaluated but stays readable.",
                "tags": ["alerts"],
                "summary": "Deactivate an alert configuration",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/alerts/{id}/activate": {
            "post": {
                "produces": ["application/json"],
                "tags": ["alerts"],
                "summary": "Reactivate an alert configuration",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/alertconfig.AlertConfiguration"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/alerts/{id}/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Change history of an alert configuration",
                "parameters": [
                    {"type": "string", "description": "Alert ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 50, "description": "Maximum entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/management.AuditEntry"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/users/{user_id}/alerts": {
            "get": {
                "description": "Newest first. Deactivated alerts are included with include_inactive=true.",
                "produces": ["application/json"],
                "tags": ["alerts"],
                "summary": "List a user's alert configurations",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "user_id", "in": "path", "required": true},
                    {"type": "boolean", "description": "Include deactivated alerts", "name": "include_inactive", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/alertconfig.AlertConfiguration"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "alertconfig.AlertConfiguration": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "criteria": {"$ref": "#/definitions/alertconfig.Criteria"},
                "id": {"type": "string"},
                "is_active": {"type": "boolean"},
                "name": {"type": "string"},
                "updated_at": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "alertconfig.CreateAlertRequest": {
            "type": "object",
            "required": ["criteria", "name", "user_id"],
            "properties": {
                "criteria": {"type": "object"},
                "name": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "alertconfig.Criteria": {
            "type": "object",
            "properties": {
                "keywords": {"type": "array", "items": {"type": "string"}},
                "sentiment": {"type": "string", "enum": ["positive", "negative", "neutral"]},
                "threshold": {"type": "integer"},
                "topics": {"type": "array", "items": {"type": "string"}},
                "type": {"type": "string"},
                "window_minutes": {"type": "integer"}
            }
        },
        "alertconfig.UpdateAlertRequest": {
            "type": "object",
            "properties": {
                "criteria": {"type": "object"},
                "name": {"type": "string"}
            }
        },
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {"type": "object", "additionalProperties": true},
                "error": {"type": "string"},
                "error_code": {"type": "string"}
            }
        },
        "management.AuditEntry": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "changed_by": {"type": "string"},
                "config_id": {"type": "string"},
                "id": {"type": "string"},
                "new_value": {"$ref": "#/definitions/management.ConfigSnapshot"},
                "old_value": {"$ref": "#/definitions/management.ConfigSnapshot"},
                "timestamp": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "management.ConfigSnapshot": {
            "type": "object",
            "properties": {
                "criteria": {"$ref": "#/definitions/alertconfig.Criteria"},
                "is_active": {"type": "boolean"},
                "name": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Tel-Insights Management API",
	Description:      "REST API for managing users' frequency alert configurations",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
