package profile

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Schema returns a JSON Schema (Draft 7) describing the profile file format,
// suitable for editor validation of .profile files.
func Schema() *jsonschema.Schema {
	eventList := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{
			Type:        "array",
			Description: desc,
			Items:       &jsonschema.Schema{Type: "string"},
		}
	}

	return &jsonschema.Schema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		Title:       "LTTng tracing profile",
		Description: "A named bundle of kernel and userspace events to enable, optionally composed from other profiles.",
		Type:        "object",
		Properties: map[string]*jsonschema.Schema{
			"desc": {
				Type:        "string",
				Description: "Free-text description shown in profile listings.",
			},
			"kernel": eventList("Kernel event names; the sentinel \"syscall\" enables the syscall event class."),
			"ust":    eventList("Userspace (UST) event names."),
			"preload": eventList("Shared library paths injected into traced commands via LD_PRELOAD. " +
				"Not inherited through includes."),
			"includes": eventList("Names of other profiles whose kernel and ust events are merged in."),
		},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}
