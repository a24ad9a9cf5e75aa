// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "security": [{"BearerAuth": []}],
    "paths": {
        "/projects": {
            "get": {
                "tags": ["Projects"],
                "summary": "List projects",
                "description": "Projects owned by the caller, most recently updated first",
                "produces": ["application/json"],
                "responses": {"200": {"description": "Project list"}}
            },
            "post": {
                "tags": ["Projects"],
                "summary": "Create project",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{
                    "in": "body",
                    "name": "project",
                    "required": true,
                    "schema": {"$ref": "#/definitions/CreateProjectRequest"}
                }],
                "responses": {
                    "201": {"description": "Project created", "schema": {"$ref": "#/definitions/Project"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/projects/{id}": {
            "get": {
                "tags": ["Projects"],
                "summary": "Get project",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {
                    "200": {"description": "Project", "schema": {"$ref": "#/definitions/Project"}},
                    "404": {"description": "Not found or forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Projects"],
                "summary": "Soft-delete project",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found or forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/projects/{id}/tasks": {
            "get": {
                "tags": ["Tasks"],
                "summary": "List project tasks",
                "description": "Live tasks ordered by level then sibling ordinal",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"200": {"description": "Task list"}}
            },
            "post": {
                "tags": ["Tasks"],
                "summary": "Create task",
                "description": "Assigns the next sibling ordinal and derives the WBS code. Tasks nest at most three levels deep.",
                "consumes": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/ID"},
                    {"in": "body", "name": "task", "required": true, "schema": {"$ref": "#/definitions/CreateTaskRequest"}}
                ],
                "responses": {
                    "201": {"description": "Task created", "schema": {"$ref": "#/definitions/Task"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Project or parent not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "Depth limit exceeded", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/projects/{id}/tree": {
            "get": {
                "tags": ["Tasks"],
                "summary": "Task tree",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"200": {"description": "Nested task tree"}}
            }
        },
        "/projects/{id}/stats": {
            "get": {
                "tags": ["Tasks"],
                "summary": "Task statistics",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"200": {"description": "Counts by status, average progress and hour totals"}}
            }
        },
        "/tasks/{id}": {
            "patch": {
                "tags": ["Tasks"],
                "summary": "Update task",
                "description": "Only present fields change. Completing a task without a progress value sets progress to 100.",
                "consumes": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/ID"},
                    {"in": "body", "name": "patch", "required": true, "schema": {"$ref": "#/definitions/UpdateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated task", "schema": {"$ref": "#/definitions/Task"}},
                    "404": {"description": "Not found or forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Tasks"],
                "summary": "Soft-delete task",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Task has live children", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/time-entries": {
            "get": {
                "tags": ["Time"],
                "summary": "List time entries",
                "description": "Newest first. Entries of deleted tasks are returned with an archived task reference.",
                "parameters": [
                    {"in": "query", "name": "task_id", "type": "integer"},
                    {"in": "query", "name": "project_id", "type": "integer"},
                    {"in": "query", "name": "start_date", "type": "string", "format": "date"},
                    {"in": "query", "name": "end_date", "type": "string", "format": "date"},
                    {"in": "query", "name": "limit", "type": "integer", "maximum": 500},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {"200": {"description": "Entry list"}}
            },
            "post": {
                "tags": ["Time"],
                "summary": "Record a time entry",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "entry", "required": true, "schema": {"$ref": "#/definitions/CreateTimeEntryRequest"}}],
                "responses": {
                    "201": {"description": "Entry created", "schema": {"$ref": "#/definitions/TimeEntry"}},
                    "422": {"description": "End time not after start time", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/time-entries/start": {
            "post": {
                "tags": ["Time"],
                "summary": "Start timer",
                "parameters": [{"in": "body", "name": "timer", "required": true, "schema": {"$ref": "#/definitions/StartTimerRequest"}}],
                "responses": {
                    "201": {"description": "Timer running", "schema": {"$ref": "#/definitions/TimeEntry"}},
                    "409": {"description": "Another timer is already running", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/time-entries/active": {
            "get": {
                "tags": ["Time"],
                "summary": "Active timer",
                "responses": {"200": {"description": "The running timer, if any"}}
            }
        },
        "/time-entries/stats": {
            "get": {
                "tags": ["Time"],
                "summary": "Time statistics",
                "responses": {"200": {"description": "Totals over finished entries"}}
            }
        },
        "/time-entries/stats/daily": {
            "get": {
                "tags": ["Time"],
                "summary": "Daily time statistics",
                "responses": {"200": {"description": "Totals per log date, newest first"}}
            }
        },
        "/time-entries/{id}": {
            "patch": {
                "tags": ["Time"],
                "summary": "Update time entry",
                "parameters": [
                    {"$ref": "#/parameters/ID"},
                    {"in": "body", "name": "patch", "required": true, "schema": {"$ref": "#/definitions/UpdateTimeEntryRequest"}}
                ],
                "responses": {"200": {"description": "Updated entry", "schema": {"$ref": "#/definitions/TimeEntry"}}}
            },
            "delete": {
                "tags": ["Time"],
                "summary": "Soft-delete time entry",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/time-entries/{id}/stop": {
            "post": {
                "tags": ["Time"],
                "summary": "Stop timer",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"200": {"description": "Stopped entry", "schema": {"$ref": "#/definitions/TimeEntry"}}}
            }
        }
    },
    "parameters": {
        "ID": {"in": "path", "name": "id", "required": true, "type": "integer", "format": "int64"}
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "Project": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "owner_id": {"type": "string", "format": "uuid"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "color": {"type": "string", "example": "#1976d2"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "CreateProjectRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string", "maxLength": 255},
                "description": {"type": "string", "maxLength": 1000},
                "color": {"type": "string", "example": "#1976d2"}
            }
        },
        "Task": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "project_id": {"type": "integer"},
                "parent_id": {"type": "integer"},
                "code": {"type": "string", "example": "1.2.3"},
                "name": {"type": "string"},
                "level": {"type": "integer", "minimum": 1, "maximum": 3},
                "level_type": {"type": "string", "enum": ["yearly", "half_yearly", "quarterly", "monthly", "weekly", "daily"]},
                "sort_order": {"type": "integer"},
                "estimated_hours": {"type": "number"},
                "actual_hours": {"type": "number"},
                "status": {"type": "string", "enum": ["not_started", "in_progress", "completed", "paused", "cancelled"]},
                "progress_percentage": {"type": "integer"},
                "priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
                "completed_at": {"type": "string", "format": "date-time"},
                "sync_version": {"type": "integer"}
            }
        },
        "CreateTaskRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "parent_id": {"type": "integer"},
                "name": {"type": "string", "maxLength": 255},
                "description": {"type": "string"},
                "level_type": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "estimated_hours": {"type": "number", "minimum": 0, "maximum": 9999},
                "priority": {"type": "string"}
            }
        },
        "UpdateTaskRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "level_type": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "estimated_hours": {"type": "number"},
                "status": {"type": "string"},
                "progress_percentage": {"type": "integer", "minimum": 0, "maximum": 100},
                "priority": {"type": "string"}
            }
        },
        "TimeEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "string", "format": "uuid"},
                "task_id": {"type": "integer"},
                "description": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "duration_seconds": {"type": "integer"},
                "is_manual": {"type": "boolean"},
                "log_date": {"type": "string", "format": "date"},
                "sync_version": {"type": "integer"},
                "task": {
                    "type": "object",
                    "properties": {
                        "id": {"type": "integer"},
                        "project_id": {"type": "integer"},
                        "name": {"type": "string"},
                        "code": {"type": "string"},
                        "archived": {"type": "boolean"}
                    }
                }
            }
        },
        "CreateTimeEntryRequest": {
            "type": "object",
            "required": ["task_id", "start_time"],
            "properties": {
                "task_id": {"type": "integer"},
                "description": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "is_manual": {"type": "boolean"}
            }
        },
        "UpdateTimeEntryRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"}
            }
        },
        "StartTimerRequest": {
            "type": "object",
            "required": ["task_id"],
            "properties": {
                "task_id": {"type": "integer"},
                "description": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and the token from 'wbs token issue'"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "WBS API",
	Description:      "Project work breakdown structures with a per-user time ledger",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
