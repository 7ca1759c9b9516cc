package openapi

import (
	"net/http"
	"strings"
)

const mediaJSON = "application/json"

// ErrorStatuses are the failure responses every document carries as
// components. Handlers answer them with {"error": message}.
var ErrorStatuses = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusRequestEntityTooLarge,
	http.StatusInternalServerError,
	http.StatusServiceUnavailable,
}

func newComponents() *Components {
	c := &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:     "object",
				Required: []string{"error"},
				Properties: map[string]*Schema{
					"error": {Type: "string"},
				},
			},
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Default: 1},
					"page_size": {Type: "integer"},
					"search":    {Type: "string"},
					"sort":      {Type: "string", Description: "Comma-separated fields, - prefix for descending", Example: "-CreatedAt"},
				},
			},
		},
		Responses: make(map[string]*Response, len(ErrorStatuses)),
	}

	for _, status := range ErrorStatuses {
		c.Responses[errorName(status)] = JSON(http.StatusText(status), Ref("Error"))
	}
	return c
}

func errorName(status int) string {
	return strings.ReplaceAll(http.StatusText(status), " ", "")
}

// Ref points at a component schema.
func Ref(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}

// MapOf is an object keyed by arbitrary strings whose values match value.
func MapOf(description string, value *Schema) *Schema {
	return &Schema{Type: "object", Description: description, AdditionalProperties: value}
}

// ArrayOf is an array whose items match item.
func ArrayOf(item *Schema) *Schema {
	return &Schema{Type: "array", Items: item}
}

// JSON is an inline response with a JSON body.
func JSON(description string, schema *Schema) *Response {
	return &Response{
		Description: description,
		Content:     map[string]*MediaType{mediaJSON: {Schema: schema}},
	}
}

// Body is a required request body of the given media type.
func Body(mediaType string, schema *Schema) *RequestBody {
	return &RequestBody{
		Required: true,
		Content:  map[string]*MediaType{mediaType: {Schema: schema}},
	}
}

// JSONBody is a required JSON request body.
func JSONBody(schema *Schema) *RequestBody {
	return Body(mediaJSON, schema)
}

// Responses pairs a success response with references to the shared error
// responses for each of errs.
func Responses(status int, ok *Response, errs ...int) map[int]*Response {
	out := make(map[int]*Response, len(errs)+1)
	out[status] = ok
	for _, code := range errs {
		out[code] = &Response{Ref: "#/components/responses/" + errorName(code)}
	}
	return out
}

// PathParam is a required string path parameter. format may be empty.
func PathParam(name, format, description string) *Parameter {
	return &Parameter{
		Name:        name,
		In:          "path",
		Required:    true,
		Description: description,
		Schema:      &Schema{Type: "string", Format: format},
	}
}

// QueryParam is an optional query parameter of the given JSON type.
func QueryParam(name, typ, description string) *Parameter {
	return &Parameter{
		Name:        name,
		In:          "query",
		Description: description,
		Schema:      &Schema{Type: typ},
	}
}
