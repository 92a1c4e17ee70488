package evaluation

import (
	"sync"

	"github.com/invopop/jsonschema"
	openai "github.com/sashabaranov/go-openai"
)

const schemaName = "interview_evaluation"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

// Schema returns the JSON schema of Result. The schema is inlined without
// $ref definitions so inference servers with partial schema support accept it.
func Schema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			DoNotReference: true,
			ExpandedStruct: true,
		}
		schema = r.Reflect(&Result{})
		schema.Version = ""
		schema.ID = ""
	})
	return schema
}

// ResponseFormat asks the server to constrain output to Schema.
func ResponseFormat() *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schemaName,
			Schema: Schema(),
			Strict: true,
		},
	}
}
