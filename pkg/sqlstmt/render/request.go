// Package render turns declarative statement requests into SQL with a
// shared statement builder. Requests are JSON or YAML documents:
//
//	op: update
//	table: user
//	changes: {id: 7, name: ada}
//
//	{"op": "find", "table": "user", "filter": {"active": 1}, "limit": 10}
package render

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Operations understood by Render.
const (
	OpFind         = "find"
	OpFindOne      = "findOne"
	OpGet          = "get"
	OpCount        = "count"
	OpInsert       = "insert"
	OpInsertIgnore = "insertIgnore"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpSave         = "save"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrMissingID        = errors.New("operation needs an id")
	ErrMalformedRequest = errors.New("malformed request")
)

// Request describes one statement to generate. Filter and Rows keep the key
// order of the document they were decoded from.
type Request struct {
	Op    string `json:"op" yaml:"op" binding:"required,oneof=find findOne get count insert insertIgnore update delete save"`
	Table string `json:"table" yaml:"table" binding:"required,max=64"`

	Filter  yaml.Node `json:"-" yaml:"filter"`
	Rows    yaml.Node `json:"-" yaml:"rows"`
	Changes yaml.Node `json:"-" yaml:"changes"`
	ID      any       `json:"id,omitempty" yaml:"id"`

	Limit      uint `json:"limit,omitempty" yaml:"limit"`
	Offset     uint `json:"offset,omitempty" yaml:"offset"`
	Positional bool `json:"positional,omitempty" yaml:"positional"`
	Expand     bool `json:"expand,omitempty" yaml:"expand" binding:"excluded_with=Positional"`
}

// DecodeRequest reads a single request from a JSON or YAML document.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	return req, nil
}

// DecodeRequests reads one request or a list of them.
func DecodeRequests(data []byte) ([]Request, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	root := &node
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, nil
		}

		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		reqs := make([]Request, 0, len(root.Content))

		for i, item := range root.Content {
			var req Request
			if err := item.Decode(&req); err != nil {
				return nil, fmt.Errorf("%w: request %d: %w", ErrMalformedRequest, i, err)
			}

			reqs = append(reqs, req)
		}

		return reqs, nil
	case yaml.MappingNode:
		var req Request
		if err := root.Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
		}

		return []Request{req}, nil
	default:
		return nil, fmt.Errorf("%w: expected a mapping or a list", ErrMalformedRequest)
	}
}

func present(n *yaml.Node) bool {
	if n.Kind == 0 {
		return false
	}

	return !(n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}
