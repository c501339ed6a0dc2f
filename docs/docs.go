// Package docs registers the OpenAPI document served at /swagger/*.
// Regenerate with: swag init -g cmd/agent/main.go
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
		"/health/ready": {
			"get": {
				"tags": [
					"health"
				],
				"summary": "Readiness probe",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				}
			}
		},
		"/v1/session/register": {
			"post": {
				"tags": [
					"session"
				],
				"summary": "Register a new user",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.sessionResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/ports.RegisterInput"
						}
					}
				]
			}
		},
		"/v1/session/login": {
			"post": {
				"tags": [
					"session"
				],
				"summary": "Login",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.sessionResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/ports.LoginInput"
						}
					}
				]
			}
		},
		"/v1/session": {
			"get": {
				"tags": [
					"session"
				],
				"summary": "Current session",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.sessionResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/v1/session/logout": {
			"post": {
				"tags": [
					"session"
				],
				"summary": "Logout",
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/v1/profile": {
			"patch": {
				"tags": [
					"session"
				],
				"summary": "Update profile",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.sessionResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/ports.ProfilePatch"
						}
					}
				]
			}
		},
		"/v1/users/{id}/name": {
			"get": {
				"tags": [
					"users"
				],
				"summary": "Resolve a user's display name",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.nameResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true,
						"description": "User ID"
					}
				]
			}
		},
		"/v1/cache": {
			"delete": {
				"tags": [
					"users"
				],
				"summary": "Reset the local cache",
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/v1/{kind}": {
			"get": {
				"tags": [
					"listings"
				],
				"summary": "List gigs or services",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "kind",
						"in": "path",
						"required": true,
						"description": "kind",
						"enum": [
							"gigs",
							"services"
						]
					},
					{
						"type": "string",
						"name": "status",
						"in": "query"
					}
				]
			},
			"post": {
				"tags": [
					"listings"
				],
				"summary": "Create a gig or service",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"multipart/form-data"
				],
				"parameters": [
					{
						"type": "string",
						"name": "kind",
						"in": "path",
						"required": true,
						"description": "kind",
						"enum": [
							"gigs",
							"services"
						]
					},
					{
						"type": "string",
						"name": "title",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"name": "description",
						"in": "formData",
						"required": true
					},
					{
						"type": "number",
						"name": "price",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"name": "timeframe",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "duration",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "requirements",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"name": "document",
						"in": "formData",
						"required": false
					}
				]
			}
		},
		"/v1/{kind}/{id}": {
			"patch": {
				"tags": [
					"listings"
				],
				"summary": "Update a gig or service",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"multipart/form-data"
				],
				"parameters": [
					{
						"type": "string",
						"name": "kind",
						"in": "path",
						"required": true,
						"description": "kind",
						"enum": [
							"gigs",
							"services"
						]
					},
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true,
						"description": "Listing ID"
					},
					{
						"type": "string",
						"name": "title",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "description",
						"in": "formData",
						"required": false
					},
					{
						"type": "number",
						"name": "price",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "timeframe",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "duration",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "requirements",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"name": "document",
						"in": "formData",
						"required": false
					}
				]
			}
		},
		"/v1/listings/mine": {
			"get": {
				"tags": [
					"listings"
				],
				"summary": "The client's own gigs and services, drafts included",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/v1/listings/sync": {
			"post": {
				"tags": [
					"listings"
				],
				"summary": "Publish offline drafts",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/v1/gigs/{id}/bids": {
			"post": {
				"tags": [
					"listings"
				],
				"summary": "Bid on a gig",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"multipart/form-data"
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true,
						"description": "Gig ID"
					},
					{
						"type": "number",
						"name": "amount",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"name": "proposal",
						"in": "formData",
						"required": true
					},
					{
						"type": "file",
						"name": "document",
						"in": "formData",
						"required": false
					}
				]
			}
		},
		"/v1/services/{id}/bookings": {
			"post": {
				"tags": [
					"listings"
				],
				"summary": "Book a service",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"multipart/form-data"
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true,
						"description": "Service ID"
					},
					{
						"type": "string",
						"name": "proposal",
						"in": "formData",
						"required": true
					},
					{
						"type": "file",
						"name": "document",
						"in": "formData",
						"required": false
					}
				]
			}
		},
		"/v1/feed": {
			"get": {
				"tags": [
					"feed"
				],
				"summary": "Posts, newest first",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/v1/feed/posts": {
			"post": {
				"tags": [
					"feed"
				],
				"summary": "Create a post",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"multipart/form-data"
				],
				"parameters": [
					{
						"type": "string",
						"name": "text",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"name": "link",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"name": "media",
						"in": "formData",
						"required": false
					}
				]
			}
		},
		"/v1/feed/posts/{id}/like": {
			"post": {
				"tags": [
					"feed"
				],
				"summary": "Like or unlike a post",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true,
						"description": "Post ID"
					}
				]
			}
		},
		"/v1/feed/posts/{id}/comments": {
			"get": {
				"tags": [
					"feed"
				],
				"summary": "Comments on a post, oldest first",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true,
						"description": "Post ID"
					}
				]
			},
			"post": {
				"tags": [
					"feed"
				],
				"summary": "Comment on a post",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true,
						"description": "Post ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.commentRequest"
						}
					}
				]
			}
		},
		"/v1/chat/conversations": {
			"get": {
				"tags": [
					"chat"
				],
				"summary": "Conversations, most recent first",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/v1/chat/{peer}/messages": {
			"get": {
				"tags": [
					"chat"
				],
				"summary": "Messages with a peer, oldest first",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "peer",
						"in": "path",
						"required": true,
						"description": "Peer user ID"
					}
				]
			},
			"post": {
				"tags": [
					"chat"
				],
				"summary": "Send a message",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.errorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "peer",
						"in": "path",
						"required": true,
						"description": "Peer user ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.messageRequest"
						}
					}
				]
			}
		}
	},
	"definitions": {
		"api.errorResponse": {
			"type": "object",
			"properties": {
				"error": {
					"type": "string"
				},
				"fields": {
					"type": "object",
					"additionalProperties": {
						"type": "array",
						"items": {
							"type": "string"
						}
					}
				}
			}
		},
		"domain.User": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"role": {
					"type": "string"
				},
				"phone": {
					"type": "string"
				},
				"disability": {
					"type": "string"
				},
				"client_type": {
					"type": "string"
				},
				"avatar": {
					"type": "string"
				},
				"origin": {
					"type": "string"
				},
				"created_at": {
					"type": "string"
				},
				"skills": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"handler.sessionResponse": {
			"type": "object",
			"properties": {
				"token": {
					"type": "string"
				},
				"expires_at": {
					"type": "string"
				},
				"user": {
					"$ref": "#/definitions/domain.User"
				},
				"source": {
					"type": "string",
					"enum": [
						"api",
						"local"
					]
				}
			}
		},
		"handler.nameResponse": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"name": {
					"type": "string"
				}
			}
		},
		"handler.commentRequest": {
			"type": "object",
			"properties": {
				"text": {
					"type": "string"
				}
			}
		},
		"handler.messageRequest": {
			"type": "object",
			"properties": {
				"text": {
					"type": "string"
				}
			}
		},
		"ports.LoginInput": {
			"type": "object",
			"required": [
				"email",
				"password"
			],
			"properties": {
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				},
				"role": {
					"type": "string",
					"enum": [
						"pwd",
						"client"
					]
				}
			}
		},
		"ports.RegisterInput": {
			"type": "object",
			"required": [
				"name",
				"email",
				"phone",
				"password",
				"confirm_password",
				"role"
			],
			"properties": {
				"name": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"phone": {
					"type": "string"
				},
				"password": {
					"type": "string"
				},
				"confirm_password": {
					"type": "string"
				},
				"disability": {
					"type": "string"
				},
				"role": {
					"type": "string",
					"enum": [
						"pwd",
						"client"
					]
				},
				"client_type": {
					"type": "string",
					"enum": [
						"gig",
						"service"
					]
				},
				"skills": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"ports.ProfilePatch": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"phone": {
					"type": "string"
				},
				"disability": {
					"type": "string"
				},
				"skills": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
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
	Schemes:          []string{},
	Title:            "AbleConnect Agent API",
	Description:      "Offline-first access to the AbleConnect marketplace, feed and chat.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
