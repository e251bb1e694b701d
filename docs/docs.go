// Package docs registers the OpenAPI description served at /swagger.
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
        "/auth/register": {
            "post": {"tags": ["auth"], "summary": "Register a passenger account", "responses": {"201": {"description": "Created"}, "409": {"description": "Email already registered"}}}
        },
        "/auth/login": {
            "post": {"tags": ["auth"], "summary": "Exchange credentials for tokens", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}}
        },
        "/auth/refresh": {
            "post": {"tags": ["auth"], "summary": "Refresh an access token", "responses": {"200": {"description": "OK"}}}
        },
        "/routes": {
            "get": {"tags": ["trips"], "summary": "List routes with their stops", "responses": {"200": {"description": "OK"}}}
        },
        "/trips": {
            "get": {"tags": ["trips"], "summary": "List upcoming trips", "responses": {"200": {"description": "OK"}}}
        },
        "/trips/{id}/seats": {
            "get": {"tags": ["seats"], "summary": "Seat map for a trip", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/trips/{id}/seats/{seat}/hold": {
            "post": {"tags": ["seats"], "summary": "Hold a seat", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Seat taken"}}},
            "delete": {"tags": ["seats"], "summary": "Release a held seat", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/bookings": {
            "post": {"tags": ["bookings"], "summary": "Create a pending booking", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Seat conflict"}}},
            "get": {"tags": ["bookings"], "summary": "List the caller's bookings", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/bookings/from-holds": {
            "post": {"tags": ["bookings"], "summary": "Pay for held seats from the wallet", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/bookings/{id}/pay/wallet": {
            "post": {"tags": ["bookings"], "summary": "Pay a pending booking from the wallet", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "Insufficient funds"}}}
        },
        "/bookings/{id}/pay/mpesa": {
            "post": {"tags": ["payments"], "summary": "Start an M-Pesa STK push for a pending booking", "security": [{"BearerAuth": []}], "responses": {"202": {"description": "Accepted"}}}
        },
        "/bookings/{id}/cancel": {
            "post": {"tags": ["cancellation"], "summary": "Cancel a booking with a tiered refund", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/bookings/{id}/ticket": {
            "get": {"tags": ["bookings"], "summary": "Download the PDF ticket", "produces": ["application/pdf"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/wallet": {
            "get": {"tags": ["wallet"], "summary": "Wallet balance", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/wallet/transactions": {
            "get": {"tags": ["wallet"], "summary": "Wallet history", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/wallet/topup/mpesa": {
            "post": {"tags": ["payments"], "summary": "Top up the wallet through M-Pesa", "security": [{"BearerAuth": []}], "responses": {"202": {"description": "Accepted"}}}
        },
        "/payments/mpesa/callback": {
            "post": {"tags": ["payments"], "summary": "Daraja result callback", "responses": {"200": {"description": "Always acknowledged"}}}
        },
        "/notifications": {
            "get": {"tags": ["notifications"], "summary": "List notifications", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/notifications/delete": {
            "post": {"tags": ["notifications"], "summary": "Delete notifications by id", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/routes/{id}": {
            "delete": {"tags": ["admin"], "summary": "Delete a route with no future bookings", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/users/{id}/role": {
            "put": {"tags": ["admin"], "summary": "Change a user's role", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/staff": {
            "post": {"tags": ["admin"], "summary": "Create a staff account", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "TwendeBus API",
	Description:      "Seat booking, wallet and M-Pesa payments for TwendeBus.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
