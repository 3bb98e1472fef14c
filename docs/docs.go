// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package docs registers the Swagger 2.0 document served at /swagger/doc.json.
// The layout follows the output of swag init so the annotations on the
// handlers in internal/api can regenerate it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "GitHub Repository",
            "url": "https://github.com/tomtom215/placegate/issues"
        },
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/place-finder/search": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Searches the provider and returns the first hit, cached per normalized query.",
                "produces": ["application/json"],
                "tags": ["PlaceFinder"],
                "summary": "Single place search",
                "parameters": [
                    {"type": "string", "description": "Search text", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "First hit", "schema": {"$ref": "#/definitions/api.SearchHit"}},
                    "400": {"description": "Missing q", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "401": {"description": "Missing or invalid API key", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "502": {"description": "Provider failure", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "503": {"description": "Provider circuit open", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/place-finder/bulk-search": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Looks up each query in order with a short pause between queries. Failed lookups yield an error entry.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["PlaceFinder"],
                "summary": "Bulk place search",
                "parameters": [
                    {"type": "string", "description": "Replays the stored response for a repeated key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Queries", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.BulkSearchRequest"}}
                ],
                "responses": {
                    "200": {"description": "One result per query", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.BulkSearchResult"}}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "401": {"description": "Missing or invalid API key", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "409": {"description": "Same key already in flight", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/place-finder/details": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Returns provider details by placeId, or searches by name first and adds _searchInfo.",
                "produces": ["application/json"],
                "tags": ["PlaceFinder"],
                "summary": "Place details",
                "parameters": [
                    {"type": "string", "description": "Provider place id", "name": "placeId", "in": "query"},
                    {"type": "string", "description": "Place name", "name": "name", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Provider details document", "schema": {"type": "object"}},
                    "400": {"description": "Neither placeId nor name", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "404": {"description": "No place found", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/place-finder/debug/search": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["PlaceFinder"],
                "summary": "Raw provider search response",
                "parameters": [
                    {"type": "string", "description": "Search text", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "Raw body", "schema": {"type": "object"}},
                    "400": {"description": "Missing q", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/place-finder/debug/details": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["PlaceFinder"],
                "summary": "Raw provider details response",
                "parameters": [
                    {"type": "string", "description": "Provider place id", "name": "placeId", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "Raw body", "schema": {"type": "object"}},
                    "400": {"description": "Missing placeId", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/place-finder/info": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["PlaceFinder"],
                "summary": "Service name, version and endpoint catalog",
                "responses": {
                    "200": {"description": "Service info", "schema": {"type": "object"}}
                }
            }
        },
        "/admin/sync-places": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Queues a hybrid discovery and sync run. The body is optional; maxResults defaults to 1000.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Queue a places sync",
                "parameters": [
                    {"type": "string", "description": "Replays the stored response for a repeated key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Sync options", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/api.SyncRequest"}}
                ],
                "responses": {
                    "202": {"description": "Job queued", "schema": {"$ref": "#/definitions/api.SyncAccepted"}},
                    "400": {"description": "maxResults out of range", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "409": {"description": "Same key already in flight", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "500": {"description": "Queue failure", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/admin/sync-places/{jobId}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Sync job status",
                "parameters": [
                    {"type": "string", "description": "Job id", "name": "jobId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Job status", "schema": {"$ref": "#/definitions/jobs.JobStatus"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/auth/token": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Issue a catalog access token",
                "parameters": [
                    {"description": "Subject and roles", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "Bearer token", "schema": {"$ref": "#/definitions/api.TokenResponse"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/places": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "List stored places",
                "parameters": [
                    {"maximum": 500, "minimum": 1, "type": "integer", "default": 50, "name": "limit", "in": "query"},
                    {"minimum": 0, "type": "integer", "default": 0, "name": "offset", "in": "query"},
                    {"type": "string", "description": "Category filter", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Page of places", "schema": {"$ref": "#/definitions/api.PlacePage"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/models.Problem"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/places/nearby": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Stored places within a radius",
                "parameters": [
                    {"maximum": 90, "minimum": -90, "type": "number", "name": "latitude", "in": "query", "required": true},
                    {"maximum": 180, "minimum": -180, "type": "number", "name": "longitude", "in": "query", "required": true},
                    {"maximum": 50000, "minimum": 100, "type": "number", "description": "Meters", "name": "radius", "in": "query", "required": true},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 100, "name": "maxResults", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Places ordered by distance", "schema": {"$ref": "#/definitions/api.NearbyResponse"}},
                    "400": {"description": "Invalid coordinates", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        },
        "/places/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Stored place document",
                "parameters": [
                    {"type": "string", "description": "Place id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Stored details document", "schema": {"type": "object"}},
                    "404": {"description": "Place not found", "schema": {"$ref": "#/definitions/models.Problem"}}
                }
            }
        }
    },
    "definitions": {
        "api.SearchHit": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "placeId": {"type": "string"},
                "name": {"type": "string"},
                "address": {"type": "string"}
            }
        },
        "api.BulkSearchRequest": {
            "type": "object",
            "required": ["queries"],
            "properties": {
                "queries": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 3}}
            }
        },
        "api.BulkSearchResult": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "placeId": {"type": "string"},
                "name": {"type": "string"},
                "address": {"type": "string"},
                "error": {"type": "string", "example": "Not found"}
            }
        },
        "api.SyncRequest": {
            "type": "object",
            "properties": {
                "maxResults": {"type": "integer", "minimum": 10, "maximum": 1000, "default": 1000}
            }
        },
        "api.SyncAccepted": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "jobId": {"type": "string"},
                "optionsUsed": {
                    "type": "object",
                    "properties": {"maxResults": {"type": "integer"}}
                }
            }
        },
        "jobs.JobStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "state": {"type": "string", "enum": ["queued", "active", "completed", "failed"]},
                "maxResults": {"type": "integer"},
                "source": {"type": "string"},
                "summary": {"$ref": "#/definitions/sync.SyncSummary"},
                "error": {"type": "string"},
                "enqueuedAt": {"type": "string", "format": "date-time"},
                "startedAt": {"type": "string", "format": "date-time"},
                "finishedAt": {"type": "string", "format": "date-time"}
            }
        },
        "sync.SyncSummary": {
            "type": "object",
            "properties": {
                "nearbyRaw": {"type": "integer"},
                "textSearchRaw": {"type": "integer"},
                "totalUniqueRaw": {"type": "integer"},
                "filtered": {"type": "integer"},
                "enriched": {"type": "integer"},
                "saved": {"type": "integer"},
                "errors": {"type": "integer"}
            }
        },
        "api.TokenRequest": {
            "type": "object",
            "required": ["subject", "roles"],
            "properties": {
                "subject": {"type": "string", "maxLength": 128},
                "roles": {"type": "array", "minItems": 1, "items": {"type": "string", "enum": ["user", "admin"]}}
            }
        },
        "api.TokenResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "tokenType": {"type": "string", "example": "Bearer"},
                "expiresAt": {"type": "string", "format": "date-time"}
            }
        },
        "store.PlaceSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "formattedAddress": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "rating": {"type": "number"},
                "userRatingCount": {"type": "integer"},
                "types": {"type": "array", "items": {"type": "string"}},
                "businessStatus": {"type": "string"},
                "distanceMeters": {"type": "number"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "api.PlacePage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/store.PlaceSummary"}},
                "total": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "api.NearbyResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/store.PlaceSummary"}},
                "count": {"type": "integer"}
            }
        },
        "models.Problem": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "instance": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "description": "Internal API key",
            "type": "apiKey",
            "name": "x-api-key",
            "in": "header"
        },
        "BearerAuth": {
            "description": "JWT issued by /auth/token, sent as: Bearer {token}",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Placegate API",
	Description:      "Places discovery gateway and catalog sync service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
