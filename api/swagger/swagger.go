package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Marks Ledger API",
        "description": "Spreadsheet ingestion and student marks management",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Normalized student mark records"},
        {"name": "Uploads", "description": "Spreadsheet batches"},
        {"name": "Health", "description": "Service status"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Health"}}
                }
            }
        },
        "/upload": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload a marks spreadsheet",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true, "description": ".xlsx or .csv with Student_ID, Student_Name, Total_Marks, Marks_Obtained"}
                ],
                "responses": {
                    "200": {"description": "Processed", "schema": {"$ref": "#/definitions/UploadResponse"}},
                    "400": {"description": "No file, unsupported type or too large", "schema": {"$ref": "#/definitions/Error"}},
                    "500": {"description": "Processing failed", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/uploads": {
            "get": {
                "tags": ["Uploads"],
                "summary": "List upload batches newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Upload"}}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/uploads/reconcile": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Queue a student count reconciliation",
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/Message"}},
                    "503": {"description": "Reconciliation unavailable", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/uploads/{id}": {
            "delete": {
                "tags": ["Uploads"],
                "summary": "Delete an upload and its student records",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"$ref": "#/definitions/DeleteUploadResponse"}},
                    "404": {"description": "Upload not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/uploads/{id}/students": {
            "get": {
                "tags": ["Uploads"],
                "summary": "List the records of one upload",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/StudentRecord"}}},
                    "400": {"description": "Invalid upload ID", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/uploads/{id}/export": {
            "get": {
                "tags": ["Uploads"],
                "summary": "Download the records of one upload",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unknown format", "schema": {"$ref": "#/definitions/Error"}},
                    "404": {"description": "Upload not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List student records newest first",
                "parameters": [
                    {"name": "upload_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/StudentRecord"}}},
                    "400": {"description": "Invalid upload ID", "schema": {"$ref": "#/definitions/Error"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get a student record",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StudentRecord"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update a student record",
                "description": "The percentage is recomputed from the submitted marks.",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/StudentRecord"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/Error"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete a student record",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"$ref": "#/definitions/Message"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        }
    },
    "definitions": {
        "Upload": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "filename": {"type": "string"},
                "student_count": {"type": "integer"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "StudentRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "student_id": {"type": "string"},
                "student_name": {"type": "string"},
                "total_marks": {"type": "integer"},
                "marks_obtained": {"type": "integer"},
                "percentage": {"type": "number"},
                "upload_id": {"type": "string", "format": "uuid", "x-nullable": true},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "UpdateStudentRequest": {
            "type": "object",
            "required": ["student_name", "total_marks", "marks_obtained"],
            "properties": {
                "student_name": {"type": "string"},
                "total_marks": {"type": "integer", "minimum": 1},
                "marks_obtained": {"type": "integer", "minimum": 0}
            }
        },
        "UploadResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "upload": {"$ref": "#/definitions/Upload"},
                "students": {"type": "array", "items": {"$ref": "#/definitions/StudentRecord"}},
                "count": {"type": "integer"}
            }
        },
        "DeleteUploadResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "deleted_students": {"type": "integer"},
                "upload_id": {"type": "string"}
            }
        },
        "Health": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uploads": {"description": "integer or \"unknown\""},
                "students": {"description": "integer or \"unknown\""},
                "time": {"type": "string", "format": "date-time"}
            }
        },
        "Message": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "Error": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
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
