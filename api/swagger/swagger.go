package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Admissions CRM API",
        "description": "Enrollment pipeline for private school admissions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Operator authentication"},
        {"name": "Leads", "description": "Lead pipeline and conversion"},
        {"name": "Applications", "description": "Application review and decisions"},
        {"name": "Households", "description": "Households, guardians and custody links"},
        {"name": "Students", "description": "Student records"},
        {"name": "Funnel", "description": "Admissions funnel dashboard"},
        {"name": "Exports", "description": "Decision letters and rosters"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Operator login",
                "responses": {
                    "200": {"description": "Access token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current operator",
                "responses": {
                    "200": {"description": "Operator profile"}
                }
            }
        },
        "/leads": {
            "get": {
                "tags": ["Leads"],
                "summary": "List leads",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "post": {
                "tags": ["Leads"],
                "summary": "Create lead",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/leads/{id}": {
            "get": {
                "tags": ["Leads"],
                "summary": "Get lead detail",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "404": {"description": "Lead not found"}
                }
            }
        },
        "/leads/{id}/schedule-tour": {
            "post": {
                "tags": ["Leads"],
                "summary": "Schedule a campus tour",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Invalid transition or lead already closed"}
                }
            }
        },
        "/leads/{id}/complete-tour": {
            "post": {
                "tags": ["Leads"],
                "summary": "Complete a campus tour",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Invalid transition or lead already closed"}
                }
            }
        },
        "/leads/{id}/stage": {
            "patch": {
                "tags": ["Leads"],
                "summary": "Move a lead to another stage",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Invalid transition or lead already closed"}
                }
            }
        },
        "/leads/{id}/mark-lost": {
            "post": {
                "tags": ["Leads"],
                "summary": "Mark a lead as lost",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Lead already closed"}
                }
            }
        },
        "/leads/{id}/convert": {
            "post": {
                "tags": ["Leads"],
                "summary": "Convert a lead into a household",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Lead already closed"}
                }
            }
        },
        "/applications": {
            "get": {
                "tags": ["Applications"],
                "summary": "List applications",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "post": {
                "tags": ["Applications"],
                "summary": "Create a draft application",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/applications/{id}": {
            "get": {
                "tags": ["Applications"],
                "summary": "Get application detail",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "404": {"description": "Application not found"}
                }
            }
        },
        "/applications/{id}/submit": {
            "post": {
                "tags": ["Applications"],
                "summary": "Submit a draft application",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/applications/{id}/start-review": {
            "post": {
                "tags": ["Applications"],
                "summary": "Move an application into review",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/applications/{id}/schedule-interview": {
            "post": {
                "tags": ["Applications"],
                "summary": "Schedule an interview",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/applications/{id}/complete-interview": {
            "post": {
                "tags": ["Applications"],
                "summary": "Complete an interview",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/applications/{id}/decide": {
            "post": {
                "tags": ["Applications"],
                "summary": "Record an admission decision",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "400": {"description": "Missing waitlist position or unknown outcome"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/applications/{id}/enroll": {
            "post": {
                "tags": ["Applications"],
                "summary": "Confirm enrollment",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Application not accepted"}
                }
            }
        },
        "/applications/{id}/withdraw": {
            "post": {
                "tags": ["Applications"],
                "summary": "Withdraw an application",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Application already closed"}
                }
            }
        },
        "/applications/{id}/fee-paid": {
            "post": {
                "tags": ["Applications"],
                "summary": "Mark the application fee as paid",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "404": {"description": "Application not found"}
                }
            }
        },
        "/households": {
            "get": {
                "tags": ["Households"],
                "summary": "List households",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/households/{id}": {
            "get": {
                "tags": ["Households"],
                "summary": "Get household detail",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "404": {"description": "Household not found"}
                }
            }
        },
        "/households/{id}/guardians": {
            "post": {
                "tags": ["Households"],
                "summary": "Add a guardian",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/households/{id}/guardians/{guardianId}/primary": {
            "put": {
                "tags": ["Households"],
                "summary": "Promote a guardian to primary",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "404": {"description": "Guardian not found in household"}
                }
            }
        },
        "/households/{id}/students": {
            "post": {
                "tags": ["Households"],
                "summary": "Attach a student for split custody",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"},
                    "400": {"description": "Billing split would exceed 100 percent"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student detail",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"},
                    "404": {"description": "Student not found"}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update a student's profile",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/funnel": {
            "get": {
                "tags": ["Funnel"],
                "summary": "Admissions funnel summary",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/exports/applications": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the application roster as CSV",
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/exports/applications/{id}/decision-letter": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the decision letter as PDF",
                "responses": {
                    "200": {"description": "PDF file"},
                    "400": {"description": "Application has no recorded decision"}
                }
            }
        }
    },
    "responses": {
        "Envelope": {
            "description": "Standard response envelope",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
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
