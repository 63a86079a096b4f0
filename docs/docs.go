// Package docs is generated by swag from the controller annotations.
// Regenerate with: swag init -g cmd/server/main.go
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
        "/api/login": {
            "post": {
                "description": "Exchanges login and password for an access and a refresh token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Authenticate",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/user/refresh": {
            "post": {
                "description": "Issues a new access token. A deleted user is answered with code USER_DELETED.",
                "tags": ["Auth"],
                "summary": "Refresh the access token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/qris-payment": {
            "post": {
                "security": [{"OAuth2Password": []}],
                "description": "Creates a QRIS transaction for a subscription plan. Repeating the request with the same Idempotency-Key returns the same transaction.",
                "tags": ["Payment"],
                "summary": "Create a payment",
                "parameters": [{"type": "string", "name": "Idempotency-Key", "in": "header"}],
                "responses": {"200": {"description": "OK"}, "201": {"description": "Created"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/qris-payment/{ref}/check": {
            "get": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Payment"],
                "summary": "Check a payment",
                "parameters": [{"type": "string", "name": "ref", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/qris-payment/{ref}/upload": {
            "post": {
                "security": [{"OAuth2Password": []}],
                "consumes": ["multipart/form-data"],
                "tags": ["Payment"],
                "summary": "Upload a payment proof",
                "parameters": [
                    {"type": "string", "name": "ref", "in": "path", "required": true},
                    {"type": "file", "name": "proof", "in": "formData", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "413": {"description": "Request Entity Too Large"}}
            }
        },
        "/api/qris-payment/{ref}/upload-base64": {
            "post": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Payment"],
                "summary": "Upload a payment proof as base64",
                "parameters": [{"type": "string", "name": "ref", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "413": {"description": "Request Entity Too Large"}}
            }
        },
        "/api/qris-payment/{ref}/cancel": {
            "post": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Payment"],
                "summary": "Cancel a payment",
                "parameters": [{"type": "string", "name": "ref", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/qris-payment/{ref}/qr": {
            "get": {
                "security": [{"OAuth2Password": []}],
                "produces": ["image/png"],
                "tags": ["Payment"],
                "summary": "QR code of a payment",
                "parameters": [{"type": "string", "name": "ref", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/qris-payments": {
            "get": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Payment"],
                "summary": "Payment history",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/qris-settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "QRIS settings",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Settings"],
                "summary": "Update QRIS settings",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/plans": {
            "get": {
                "tags": ["Settings"],
                "summary": "Subscription plans",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/subscriptions/verify": {
            "post": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Admin"],
                "summary": "Verify a manual payment",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/pending": {
            "get": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Admin"],
                "summary": "Pending manual payments",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/user/profile": {
            "get": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Account"],
                "summary": "User profile",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/connection/status": {
            "get": {
                "security": [{"OAuth2Password": []}],
                "tags": ["Account"],
                "summary": "Connection status",
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/api/tripay/callback": {
            "post": {
                "tags": ["Gateway"],
                "summary": "Tripay callback",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        }
    },
    "securityDefinitions": {
        "OAuth2Password": {
            "type": "oauth2",
            "flow": "password",
            "tokenUrl": "/api/login"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"https", "http"},
	Title:            "qrishub.go",
	Description:      "QRIS subscription payments with manual verification and Tripay gateway support.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
