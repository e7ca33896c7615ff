package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Ombudsperson Case API",
        "description": "Case lifecycle and audit-trail service for the university ombudsperson office",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Staff login and identity"},
        {"name": "Cases", "description": "Case registry and lifecycle"},
        {"name": "Audit", "description": "Per-case activity trail"},
        {"name": "Attachments", "description": "Evidence files and the official record"},
        {"name": "Users", "description": "Staff directory"},
        {"name": "Public", "description": "Unauthenticated tracking lookup"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/public/tracking/{code}": {
            "get": {
                "tags": ["Public"],
                "summary": "Track a case by its public code",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown tracking code"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/cases": {
            "get": {
                "tags": ["Cases"],
                "summary": "List cases",
                "parameters": [
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "assignedTo", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Cases"],
                "summary": "Register a case",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCaseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"}
                }
            }
        },
        "/api/v1/cases/{id}": {
            "get": {
                "tags": ["Cases"],
                "summary": "Get a case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Cases"],
                "summary": "Hard-delete a case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Supervisors only"}
                }
            }
        },
        "/api/v1/cases/{id}/transition": {
            "post": {
                "tags": ["Cases"],
                "summary": "Change case state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition not allowed or version conflict"}
                }
            }
        },
        "/api/v1/cases/{id}/priority": {
            "post": {
                "tags": ["Cases"],
                "summary": "Change case priority",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PriorityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No-op change rejected"}
                }
            }
        },
        "/api/v1/cases/{id}/assign": {
            "post": {
                "tags": ["Cases"],
                "summary": "Reassign a case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Handler not eligible"}
                }
            }
        },
        "/api/v1/cases/{id}/entries": {
            "get": {
                "tags": ["Audit"],
                "summary": "List case trail entries",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "visible", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Audit"],
                "summary": "Append a manual trail entry",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "action", "in": "formData", "required": true, "type": "string"},
                    {"name": "comment", "in": "formData", "required": true, "type": "string"},
                    {"name": "visible", "in": "formData", "type": "boolean"},
                    {"name": "files", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/cases/{id}/entries/export": {
            "get": {
                "tags": ["Audit"],
                "summary": "Export the case trail as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV content"}
                }
            }
        },
        "/api/v1/cases/{id}/attachments": {
            "get": {
                "tags": ["Attachments"],
                "summary": "List case attachments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attachments"],
                "summary": "Upload a case attachment",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "category", "in": "formData", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "File rejected by category policy"}
                }
            }
        },
        "/api/v1/cases/{id}/record": {
            "post": {
                "tags": ["Attachments"],
                "summary": "Issue the official case record PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attachments/{attachmentId}/url": {
            "get": {
                "tags": ["Attachments"],
                "summary": "Issue a signed download link",
                "parameters": [
                    {"name": "attachmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attachments/download/{token}": {
            "get": {
                "tags": ["Attachments"],
                "summary": "Download an attachment via a signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File content"},
                    "401": {"description": "Link invalid or expired"}
                }
            }
        },
        "/api/v1/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List staff members",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/users/handlers": {
            "get": {
                "tags": ["Users"],
                "summary": "List assignable handlers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get a staff member",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "ComplainantBlock": {
            "type": "object",
            "properties": {
                "role": {"type": "string"},
                "documentType": {"type": "string"},
                "documentNumber": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "address": {"type": "string"}
            },
            "required": ["role", "documentType", "documentNumber", "firstName", "lastName", "email", "phone", "address"]
        },
        "RespondentBlock": {
            "type": "object",
            "properties": {
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "position": {"type": "string"},
                "unit": {"type": "string"}
            }
        },
        "CreateCaseRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["complaint", "grievance", "denunciation"]},
                "complainant": {"$ref": "#/definitions/ComplainantBlock"},
                "respondent": {"$ref": "#/definitions/RespondentBlock"},
                "narrative": {"type": "string"},
                "affectedRights": {"type": "string"},
                "notifyByEmail": {"type": "boolean"}
            },
            "required": ["type", "complainant", "narrative", "affectedRights", "notifyByEmail"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "targetState": {"type": "string"},
                "comment": {"type": "string"},
                "resolution": {"type": "string"},
                "override": {"type": "boolean"}
            },
            "required": ["targetState"]
        },
        "PriorityRequest": {
            "type": "object",
            "properties": {
                "priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
                "comment": {"type": "string"}
            },
            "required": ["priority"]
        },
        "AssignRequest": {
            "type": "object",
            "properties": {
                "handlerId": {"type": "string"},
                "comment": {"type": "string"}
            },
            "required": ["handlerId"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
