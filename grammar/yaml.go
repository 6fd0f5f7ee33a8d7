package grammar

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the YAML layout of a schema file:
//
//	entry: packet
//	types:
//	  packet:
//	    kind: struct
//	    members:
//	      - {name: type, node: UINT16}
//
// Types keep their document order.
type document struct {
	Entry string     `yaml:"entry,omitempty"`
	Types yaml.Node `yaml:"types"`
}

// DecodeYAML reads a schema document.
func DecodeYAML(data []byte) (*Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	s := NewSchema()
	s.Entry = doc.Entry
	if doc.Types.Kind == 0 {
		return s, nil
	}
	if doc.Types.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode schema: line %d: types must be a mapping", doc.Types.Line)
	}
	for i := 0; i+1 < len(doc.Types.Content); i += 2 {
		key, value := doc.Types.Content[i], doc.Types.Content[i+1]
		var raw any
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode schema: type %s: %w", key.Value, err)
		}
		n, err := deserializeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode schema: line %d: type %s: %w", key.Line, key.Value, err)
		}
		s.Define(key.Value, n)
	}
	return s, nil
}

// EncodeYAML writes s as a schema document that DecodeYAML reads back.
func EncodeYAML(s *Schema) ([]byte, error) {
	types := yaml.Node{Kind: yaml.MappingNode}
	for _, name := range s.Names() {
		def, _ := s.Lookup(name)
		var value yaml.Node
		if err := value.Encode(Serialize(def)); err != nil {
			return nil, fmt.Errorf("encode schema: type %s: %w", name, err)
		}
		types.Content = append(types.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&value,
		)
	}
	out, err := yaml.Marshal(document{Entry: s.Entry, Types: types})
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return out, nil
}
