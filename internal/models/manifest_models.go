package models

import "encoding/json"

// ModelManifest is the small declarative document configuring a scorer.
// The on-disk "keywords" field is shape-dependent: sentiment manifests carry
// a label→keyword-list map, empathy/crisis manifests carry a flat list.
// Both shapes decode into the one struct.
type ModelManifest struct {
	Name    string   `json:"name,omitempty"`
	Version string   `json:"version,omitempty"`
	Labels  []string `json:"labels,omitempty"`

	// LabelKeywords is populated when "keywords" is an object.
	LabelKeywords map[string][]string `json:"-"`
	// Keywords is populated when "keywords" is an array.
	Keywords []string `json:"-"`

	Boost []string `json:"boost,omitempty"`
}

type manifestAlias ModelManifest

type manifestWire struct {
	manifestAlias
	RawKeywords json.RawMessage `json:"keywords,omitempty"`
}

func (m *ModelManifest) UnmarshalJSON(data []byte) error {
	var wire manifestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = ModelManifest(wire.manifestAlias)
	if len(wire.RawKeywords) == 0 {
		return nil
	}
	var byLabel map[string][]string
	if err := json.Unmarshal(wire.RawKeywords, &byLabel); err == nil {
		m.LabelKeywords = byLabel
		return nil
	}
	var flat []string
	if err := json.Unmarshal(wire.RawKeywords, &flat); err != nil {
		return err
	}
	m.Keywords = flat
	return nil
}

func (m ModelManifest) MarshalJSON() ([]byte, error) {
	wire := manifestWire{manifestAlias: manifestAlias(m)}
	var err error
	if m.LabelKeywords != nil {
		wire.RawKeywords, err = json.Marshal(m.LabelKeywords)
	} else if m.Keywords != nil {
		wire.RawKeywords, err = json.Marshal(m.Keywords)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}
