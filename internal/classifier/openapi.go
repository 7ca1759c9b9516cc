package classifier

import (
	"net/http"

	"github.com/JaimeStill/glimpse/pkg/openapi"
)

var tags = []string{"Classification"}

// Schemas returns the component schemas referenced by Paths.
func Schemas() map[string]*openapi.Schema {
	unit := 0.0
	one := 1.0

	return map[string]*openapi.Schema{
		"ClassifyRequest": {
			Type:     "object",
			Required: []string{"labelHint", "elementImages"},
			Properties: map[string]*openapi.Schema{
				"labelHint": {Type: "string", Description: "Label to match", Example: "cart"},
				"elementImages": openapi.MapOf(
					"Element id to base64 encoded PNG or JPEG bytes",
					&openapi.Schema{Type: "string", Format: "byte"},
				),
				"confidenceThreshold": {Type: "number", Default: 0.2, Minimum: &unit, Maximum: &one},
				"allowWeakerMatches":  {Type: "boolean", Default: false},
			},
		},
		"Classification": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"label":             {Type: "string", Description: "Decided label, or unclassified"},
				"confidence":        {Type: "number", Description: "Score of the decided label"},
				"confidenceForHint": {Type: "number", Description: "Score of the requested label"},
			},
		},
		"ClassifyResponse": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"classifications": openapi.MapOf("Element id to classification for each match", openapi.Ref("Classification")),
				"batchId":         {Type: "string", Format: "uuid", Description: "Present when the batch was recorded"},
			},
		},
		"BatchResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"element_id":          {Type: "string"},
				"label":               {Type: "string"},
				"confidence":          {Type: "number"},
				"confidence_for_hint": {Type: "number"},
				"rank":                {Type: "integer"},
			},
		},
		"Batch": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                   {Type: "string", Format: "uuid"},
				"label_hint":           {Type: "string"},
				"confidence_threshold": {Type: "number"},
				"allow_weaker_matches": {Type: "boolean"},
				"submitted":            {Type: "integer"},
				"decoded":              {Type: "integer"},
				"matched":              {Type: "integer"},
				"created_at":           {Type: "string", Format: "date-time"},
				"results":              openapi.ArrayOf(openapi.Ref("BatchResult")),
			},
		},
		"BatchPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        openapi.ArrayOf(openapi.Ref("Batch")),
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
	}
}

// Paths returns the operations served by Handler, keyed relative to the API base path.
func Paths() map[string]*openapi.PathItem {
	classified := openapi.JSON("Surviving classifications", openapi.Ref("ClassifyResponse"))
	batches := openapi.JSON("Batch page", openapi.Ref("BatchPage"))

	return map[string]*openapi.PathItem{
		"/classify": {
			Post: &openapi.Operation{
				Summary:     "Classify element images against a label",
				Tags:        tags,
				RequestBody: openapi.JSONBody(openapi.Ref("ClassifyRequest")),
				Responses: openapi.Responses(http.StatusOK, classified,
					http.StatusBadRequest, http.StatusUnauthorized,
					http.StatusRequestEntityTooLarge, http.StatusInternalServerError),
			},
		},
		"/classify/upload": {
			Post: &openapi.Operation{
				Summary:     "Classify element images sent as multipart file parts",
				Description: "Each file part's field name is the element id.",
				Tags:        tags,
				RequestBody: openapi.Body("multipart/form-data", &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"labelHint":           {Type: "string"},
						"confidenceThreshold": {Type: "number"},
						"allowWeakerMatches":  {Type: "boolean"},
					},
					AdditionalProperties: &openapi.Schema{Type: "string", Format: "binary"},
				}),
				Responses: openapi.Responses(http.StatusOK, classified,
					http.StatusBadRequest, http.StatusUnauthorized,
					http.StatusRequestEntityTooLarge, http.StatusInternalServerError),
			},
		},
		"/classifications": {
			Get: &openapi.Operation{
				Summary: "List recorded batches",
				Tags:    tags,
				Parameters: []*openapi.Parameter{
					openapi.QueryParam("page", "integer", "Page number"),
					openapi.QueryParam("page_size", "integer", "Results per page"),
					openapi.QueryParam("search", "string", "Label hint search"),
					openapi.QueryParam("sort", "string", "Sort fields"),
					openapi.QueryParam("label_hint", "string", "Exact label hint"),
					openapi.QueryParam("allow_weaker_matches", "boolean", "Match policy"),
					openapi.QueryParam("min_matched", "integer", "Minimum matched elements"),
				},
				Responses: openapi.Responses(http.StatusOK, batches, http.StatusServiceUnavailable),
			},
		},
		"/classifications/{id}": {
			Get: &openapi.Operation{
				Summary:    "Find a recorded batch with its results",
				Tags:       tags,
				Parameters: []*openapi.Parameter{openapi.PathParam("id", "uuid", "Batch ID")},
				Responses: openapi.Responses(http.StatusOK, openapi.JSON("Batch", openapi.Ref("Batch")),
					http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable),
			},
		},
		"/classifications/search": {
			Post: &openapi.Operation{
				Summary:     "Search recorded batches",
				Tags:        tags,
				RequestBody: openapi.JSONBody(openapi.Ref("PageRequest")),
				Responses: openapi.Responses(http.StatusOK, batches,
					http.StatusBadRequest, http.StatusServiceUnavailable),
			},
		},
		"/labels": {
			Get: &openapi.Operation{
				Summary: "List the label catalog",
				Tags:    tags,
				Responses: openapi.Responses(http.StatusOK,
					openapi.JSON("Labels in model order", openapi.ArrayOf(&openapi.Schema{Type: "string"}))),
			},
		},
	}
}
