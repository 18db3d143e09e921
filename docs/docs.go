// Package docs holds the Swagger document served at /swagger.
// Keep it in step with the @-annotations on the handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Evyatar Yagoni",
            "email": "evyatar@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "http://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/search": {
            "get": {
                "description": "Find items whose name starts with the query, with the store carrying each one. When lat and lon are given, every result carries its distance in kilometers.",
                "produces": ["application/json"],
                "tags": ["Search"],
                "summary": "Search items",
                "parameters": [
                    {"type": "string", "example": "water", "description": "Search text", "name": "q", "in": "query", "required": true},
                    {"type": "number", "example": 40.7128, "description": "Caller latitude", "name": "lat", "in": "query"},
                    {"type": "number", "example": -74.006, "description": "Caller longitude", "name": "lon", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SearchResponse"}},
                    "400": {"description": "Missing query or invalid coordinates", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Search failed", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/search/cache": {
            "delete": {
                "description": "Drop the cached results for one query so the next search reads the catalog again",
                "tags": ["Search"],
                "summary": "Invalidate a cached search",
                "parameters": [
                    {"type": "string", "description": "Search text", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Missing query", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/search/live": {
            "get": {
                "description": "WebSocket. Send {\"type\":\"query\",\"text\":\"...\"}, {\"type\":\"clear\"}, {\"type\":\"refresh\"} or {\"type\":\"origin\",\"latitude\":..,\"longitude\":..}. Every state change arrives as {\"type\":\"state\",\"session\":\"...\",\"state\":{...}}, the first one also carrying minQueryLength; rejected frames as {\"type\":\"error\",\"error\":\"...\"}.",
                "tags": ["Search"],
                "summary": "Live search session",
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/distance": {
            "get": {
                "description": "Geodesic distance on the WGS-84 ellipsoid, with a display label",
                "produces": ["application/json"],
                "tags": ["Distance"],
                "summary": "Distance between two points",
                "parameters": [
                    {"type": "number", "description": "Start latitude", "name": "from_lat", "in": "query", "required": true},
                    {"type": "number", "description": "Start longitude", "name": "from_lon", "in": "query", "required": true},
                    {"type": "number", "description": "End latitude", "name": "to_lat", "in": "query", "required": true},
                    {"type": "number", "description": "End longitude", "name": "to_lon", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DistanceResponse"}},
                    "400": {"description": "Missing or invalid coordinates", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "geo.Coordinate": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "models.DistanceResponse": {
            "type": "object",
            "properties": {
                "kilometers": {"type": "number"},
                "label": {"type": "string", "example": "1.2 km"}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "models.FloorPosition": {
            "type": "object",
            "properties": {
                "x": {"type": "number"},
                "y": {"type": "number"}
            }
        },
        "models.ResultItem": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "store_id": {"type": "string"},
                "category": {"type": "string"},
                "position": {"$ref": "#/definitions/models.FloorPosition"},
                "store": {"$ref": "#/definitions/models.Store"},
                "distance": {"type": "number", "description": "Kilometers from the caller; only present when lat and lon were given"}
            }
        },
        "models.SearchResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "count": {"type": "integer"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/models.ResultItem"}}
            }
        },
        "models.Store": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "address": {"type": "string"},
                "location": {"$ref": "#/definitions/geo.Coordinate"},
                "floorplan_url": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Item Locator API",
	Description:      "Find which stores carry an item and how far away they are, with live search-as-you-type sessions",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
