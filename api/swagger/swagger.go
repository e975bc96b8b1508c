package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Groove Academy API",
        "description": "Scheduling and substitution backend for a music school",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Teacher availability windows"},
        {"name": "Schedules", "description": "Course schedule planning"},
        {"name": "Replacements", "description": "Teacher substitution matching"},
        {"name": "Enrollments", "description": "Student course enrollment"},
        {"name": "Timetables", "description": "Derived weekly timetable views"}
    ],
    "paths": {
        "/availability": {
            "post": {
                "tags": ["Availability"],
                "summary": "Register an availability window",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid time range"},
                    "409": {"description": "Overlapping window"}
                }
            }
        },
        "/availability/me": {
            "get": {
                "tags": ["Availability"],
                "summary": "List the authenticated teacher's own availability windows",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        },
        "/availability/{id}": {
            "put": {
                "tags": ["Availability"],
                "summary": "Rewrite an availability window",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"},
                    "409": {"description": "Overlapping window"}
                }
            },
            "delete": {
                "tags": ["Availability"],
                "summary": "Remove an availability window",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/teachers/{teacherId}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List a teacher's availability windows",
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List a course's schedules",
                "parameters": [{"name": "courseId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Schedule a course into weekly slots",
                "parameters": [{"name": "courseId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course or week not found"},
                    "409": {"description": "Teacher double-booked"},
                    "422": {"description": "Ownership mismatch"}
                }
            }
        },
        "/teachers/{teacherId}/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List a teacher's schedules",
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "delete": {
                "tags": ["Schedules"],
                "summary": "Remove one schedule entry",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/replacements": {
            "get": {
                "tags": ["Replacements"],
                "summary": "List replacements",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Replacements"],
                "summary": "Request a teacher replacement",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher or course not found"},
                    "409": {"description": "No availability window covers the session"},
                    "422": {"description": "Role or ownership mismatch"}
                }
            }
        },
        "/replacements/{id}": {
            "delete": {
                "tags": ["Replacements"],
                "summary": "Delete a replacement record",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/replacements/{id}/status": {
            "patch": {
                "tags": ["Replacements"],
                "summary": "Transition a replacement's status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"},
                    "409": {"description": "Disallowed transition"}
                }
            }
        },
        "/teachers/{teacherId}/replacements": {
            "get": {
                "tags": ["Replacements"],
                "summary": "List replacements involving a teacher",
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student into a course",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Course full"},
                    "422": {"description": "Role mismatch"}
                }
            }
        },
        "/enrollments/{id}": {
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Withdraw an enrollment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/courses/{courseId}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List a course's enrollments",
                "parameters": [{"name": "courseId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{teacherId}/timetable": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a teacher's weekly timetable",
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher not found"}
                }
            }
        },
        "/teachers/{teacherId}/timetable/export/csv": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download a teacher's timetable as CSV",
                "produces": ["text/csv"],
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/teachers/{teacherId}/timetable/export/pdf": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download a teacher's timetable as PDF",
                "produces": ["application/pdf"],
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        }
    },
    "definitions": {
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
