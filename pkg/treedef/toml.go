package treedef

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TOML document shape:
//
//	root = "main"
//
//	[[tree]]
//	name = "main"
//
//	  [[tree.node]]
//	  name = "scale"
//	  type = "math"
//	  inputs = ["value", "factor"]
//	  outputs = ["result"]
//
//	  [[tree.node]]
//	  name = "rig"
//	  tree = "rig"          # group node; type is implied
//	  inputs = ["base"]
//	  outputs = ["pose"]
//
//	  [[tree.link]]
//	  from = "scale.result"
//	  to = "rig.base"

type tomlBundle struct {
	Root  string     `toml:"root"`
	Trees []tomlTree `toml:"tree"`
}

type tomlTree struct {
	Name  string     `toml:"name"`
	Nodes []tomlNode `toml:"node"`
	Links []tomlLink `toml:"link"`
}

type tomlNode struct {
	Name    string         `toml:"name"`
	Type    string         `toml:"type"`
	Tree    string         `toml:"tree"`
	Inputs  []string       `toml:"inputs"`
	Outputs []string       `toml:"outputs"`
	Params  map[string]any `toml:"params"`
}

type tomlLink struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// ParseTOML parses a TOML bundle document.
func ParseTOML(data []byte) (*Bundle, error) {
	var raw tomlBundle
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}

	doc := docBundle{root: raw.Root}
	for _, rt := range raw.Trees {
		dt := docTree{name: rt.Name}
		for _, rn := range rt.Nodes {
			dt.nodes = append(dt.nodes, docNode{
				name:    rn.Name,
				typ:     rn.Type,
				tree:    rn.Tree,
				inputs:  rn.Inputs,
				outputs: rn.Outputs,
				params:  rn.Params,
			})
		}
		for _, rl := range rt.Links {
			dt.links = append(dt.links, docLink{from: rl.From, to: rl.To})
		}
		doc.trees = append(doc.trees, dt)
	}
	return assemble(doc)
}

// ParseTOMLFile reads and parses a TOML bundle file.
func ParseTOMLFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	bundle, err := ParseTOML(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return bundle, nil
}
