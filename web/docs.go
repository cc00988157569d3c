package web

import (
	"github.com/swaggo/swag"
)

// docsInfo describes the admin's JSON endpoints for the Swagger UI at
// /swagger/. The pages themselves are HTML and are not listed.
var docsInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Title:            "Feed Watchdog Admin",
	Description:      "JSON endpoints used by the admin pages.",
	InfoInstanceName: swag.Name,
	SwaggerTemplate:  docsTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(docsInfo.InstanceName(), docsInfo)
}

const docsTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "basePath": "{{.BasePath}}",
  "paths": {
    "/api/search/{field}": {
      "get": {
        "summary": "Search the source or receiver picker of the stream form",
        "description": "Debounced per browser session. A request replaced by a newer one for the same field answers 204.",
        "produces": ["application/json"],
        "parameters": [
          {"name": "field", "in": "path", "required": true, "type": "string", "enum": ["sourceSlug", "receiverSlug"]},
          {"name": "q", "in": "query", "type": "string", "description": "Search text"},
          {"name": "focus", "in": "query", "type": "string", "enum": ["0", "1"], "default": "1", "description": "Whether the picker has focus. Empty text only searches while focused."}
        ],
        "responses": {
          "200": {"description": "Matches", "schema": {"type": "array", "items": {"$ref": "#/definitions/searchItem"}}},
          "204": {"description": "Superseded by a newer search"},
          "401": {"description": "Not logged in, or the session expired"},
          "404": {"description": "Unknown field"},
          "502": {"description": "The API failed", "schema": {"$ref": "#/definitions/errorBody"}}
        }
      }
    }
  },
  "definitions": {
    "searchItem": {
      "type": "object",
      "properties": {
        "slug": {"type": "string"},
        "name": {"type": "string"}
      }
    },
    "errorBody": {
      "type": "object",
      "properties": {
        "error": {"type": "string"}
      }
    }
  }
}`
