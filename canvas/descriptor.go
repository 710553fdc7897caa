package canvas

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/widget_layer/platform/params"
)

// Document is a canvas configuration: the ordered list of app descriptors
// to load into one container.
type Document struct {
	Apps []Descriptor `json:"apps" yaml:"apps"`
}

// Descriptor describes one widget to load and instantiate.
type Descriptor struct {
	// Component is the identifier the implementation registers under.
	Component string `json:"component" yaml:"component"`

	// Script locates the widget's resource bundle.
	Script ScriptRef `json:"script" yaml:"script"`

	// Caption is an optional user-facing title.
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`

	// ID is the explicit app id; when empty the positional index is used
	// unless the canvas was configured manually.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Config is the per-app configuration object.
	Config params.Config `json:"config,omitempty" yaml:"config,omitempty"`
}

// ScriptRef is either a single URL or a dev/prod pair.
type ScriptRef struct {
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
	Dev  string `json:"dev,omitempty" yaml:"dev,omitempty"`
	Prod string `json:"prod,omitempty" yaml:"prod,omitempty"`
}

// Resolve picks the script URL: the dev/prod pair when both halves are
// present, selected by the debug flag, else the single URL. Empty means no
// resolvable script.
func (r ScriptRef) Resolve(debug bool) string {
	if r.Dev != "" && r.Prod != "" {
		if debug {
			return r.Dev
		}
		return r.Prod
	}
	return r.URL
}

// UnmarshalJSON accepts both the bare-string and the object form.
func (r *ScriptRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.URL)
	}
	type plain ScriptRef
	return json.Unmarshal(data, (*plain)(r))
}

// MarshalJSON emits the bare-string form when only a single URL is set.
func (r ScriptRef) MarshalJSON() ([]byte, error) {
	if r.Dev == "" && r.Prod == "" {
		return json.Marshal(r.URL)
	}
	type plain ScriptRef
	return json.Marshal(plain(r))
}

// UnmarshalYAML accepts both the bare-string and the mapping form.
func (r *ScriptRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&r.URL)
	}
	type plain ScriptRef
	return node.Decode((*plain)(r))
}

// EffectiveID returns the id this descriptor instantiates under: the
// explicit id, or the positional index when the canvas was not manually
// configured. Empty means no id is derivable.
func (d Descriptor) EffectiveID(index int, manual bool) string {
	if d.ID != "" {
		return d.ID
	}
	if manual {
		return ""
	}
	return strconv.Itoa(index)
}

// ParseDocument parses a canvas configuration from YAML or JSON, chosen by
// filename suffix with a try-both fallback.
func ParseDocument(data []byte, filename string) (*Document, error) {
	var doc Document

	switch {
	case strings.HasSuffix(filename, ".yaml"), strings.HasSuffix(filename, ".yml"):
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case strings.HasSuffix(filename, ".json"):
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("parse canvas document: %w", err)
			}
		}
	}

	return &doc, nil
}
