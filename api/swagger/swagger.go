package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classboard API",
        "description": "Per-teacher day queues with cascade scheduling, optimisation and stats",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Classboard", "description": "Day queues, cascades, optimisation, shifts and stats"}
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/schools/{schoolId}/classboard": {
            "get": {
                "tags": ["Classboard"],
                "summary": "Whole-school classboard for one day",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Board with per-teacher queues"},
                    "400": {"description": "Missing or malformed date"}
                }
            }
        },
        "/schools/{schoolId}/classboard/teachers/{teacherId}": {
            "get": {
                "tags": ["Classboard"],
                "summary": "One teacher's day queue",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Queue with gaps and optimisation figures"},
                    "409": {"description": "Stored events cannot form a valid queue"}
                }
            }
        },
        "/schools/{schoolId}/classboard/teachers/{teacherId}/events": {
            "post": {
                "tags": ["Classboard"],
                "summary": "Insert an event into a teacher queue",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InsertEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Queue after the cascade"},
                    "412": {"description": "Locked edits need an optimised queue"},
                    "422": {"description": "Placement rejected"}
                }
            }
        },
        "/schools/{schoolId}/classboard/events/{eventId}": {
            "delete": {
                "tags": ["Classboard"],
                "summary": "Remove an event and cascade its queue",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "policy", "in": "query", "required": true, "type": "string", "enum": ["locked", "respecting"]}
                ],
                "responses": {
                    "200": {"description": "Queue after the cascade"},
                    "404": {"description": "Event not found"}
                }
            },
            "patch": {
                "tags": ["Classboard"],
                "summary": "Resize, reposition or relabel an event",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "Queue after the change"},
                    "422": {"description": "Placement rejected"}
                }
            }
        },
        "/schools/{schoolId}/classboard/teachers/{teacherId}/optimise": {
            "post": {
                "tags": ["Classboard"],
                "summary": "Pack a teacher queue to the configured gap",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OptimiseRequest"}}
                ],
                "responses": {
                    "200": {"description": "Packed queue with adjusted counts"}
                }
            }
        },
        "/schools/{schoolId}/classboard/global-shift": {
            "post": {
                "tags": ["Classboard"],
                "summary": "Shift every participating teacher queue by a delta",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GlobalShiftRequest"}}
                ],
                "responses": {
                    "200": {"description": "Partial-success outcome with per-teacher failures"}
                }
            }
        },
        "/schools/{schoolId}/classboard/global-shift/opt-outs/{teacherId}": {
            "put": {
                "tags": ["Classboard"],
                "summary": "Toggle a teacher's participation in the next shift",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OptOutRequest"}}
                ],
                "responses": {
                    "200": {"description": "Current opt-out list"}
                }
            }
        },
        "/schools/{schoolId}/classboard/stats": {
            "get": {
                "tags": ["Classboard"],
                "summary": "Per-teacher and school-wide day stats",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Stats with completion, hours and earnings"}
                }
            }
        },
        "/schools/{schoolId}/classboard/stats/export": {
            "get": {
                "tags": ["Classboard"],
                "summary": "Download the day stats as CSV or PDF",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "definitions": {
        "InsertEventRequest": {
            "type": "object",
            "required": ["lessonId", "bookingId", "date", "duration", "policy"],
            "properties": {
                "lessonId": {"type": "string"},
                "bookingId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "startTime": {"type": "integer", "description": "Minutes since midnight"},
                "duration": {"type": "integer", "description": "Minutes"},
                "location": {"type": "string"},
                "afterEventId": {"type": "string"},
                "policy": {"type": "string", "enum": ["locked", "respecting"]}
            }
        },
        "UpdateEventRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "duration": {"type": "integer"},
                "startTime": {"type": "integer"},
                "status": {"type": "string", "enum": ["planned", "tbc", "completed", "uncompleted"]},
                "policy": {"type": "string", "enum": ["locked", "respecting"]}
            }
        },
        "OptimiseRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "anchorEventId": {"type": "string"}
            }
        },
        "GlobalShiftRequest": {
            "type": "object",
            "required": ["date", "deltaMinutes", "policy"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "deltaMinutes": {"type": "integer"},
                "policy": {"type": "string", "enum": ["locked", "respecting"]},
                "preview": {"type": "boolean"}
            }
        },
        "OptOutRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "optOut": {"type": "boolean"}
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
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "total": {"type": "integer"}
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
