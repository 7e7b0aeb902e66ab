package treedef

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// HCL document shape:
//
//	root = "main"
//
//	tree "main" {
//	  node "scale" {
//	    type    = "math"
//	    inputs  = ["value", "factor"]
//	    outputs = ["result"]
//	    params  = { operation = "multiply" }
//	  }
//	  node "rig" {
//	    tree    = "rig"       # group node; type is implied
//	    inputs  = ["base"]
//	    outputs = ["pose"]
//	  }
//	  link {
//	    from = "scale.result"
//	    to   = "rig.base"
//	  }
//	}

type hclBundle struct {
	Root  string    `hcl:"root,optional"`
	Trees []hclTree `hcl:"tree,block"`
}

type hclTree struct {
	Name  string    `hcl:"name,label"`
	Nodes []hclNode `hcl:"node,block"`
	Links []hclLink `hcl:"link,block"`
}

type hclNode struct {
	Name    string    `hcl:"name,label"`
	Type    string    `hcl:"type,optional"`
	Tree    string    `hcl:"tree,optional"`
	Inputs  []string  `hcl:"inputs,optional"`
	Outputs []string  `hcl:"outputs,optional"`
	Params  cty.Value `hcl:"params,optional"`
}

type hclLink struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// ParseHCL parses an HCL bundle document. The filename is used in
// diagnostics only.
func ParseHCL(data []byte, filename string) (*Bundle, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse hcl %s: %w", filename, diags)
	}

	var raw hclBundle
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decode hcl %s: %w", filename, diags)
	}

	doc := docBundle{root: raw.Root}
	for _, rt := range raw.Trees {
		dt := docTree{name: rt.Name}
		for _, rn := range rt.Nodes {
			params, err := paramsFromCty(rn.Params)
			if err != nil {
				return nil, fmt.Errorf("tree %q: node %q: %w", rt.Name, rn.Name, err)
			}
			dt.nodes = append(dt.nodes, docNode{
				name:    rn.Name,
				typ:     rn.Type,
				tree:    rn.Tree,
				inputs:  rn.Inputs,
				outputs: rn.Outputs,
				params:  params,
			})
		}
		for _, rl := range rt.Links {
			dt.links = append(dt.links, docLink{from: rl.From, to: rl.To})
		}
		doc.trees = append(doc.trees, dt)
	}
	return assemble(doc)
}

// ParseHCLFile reads and parses an HCL bundle file.
func ParseHCLFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseHCL(data, path)
}

// paramsFromCty converts a params attribute into plain Go values.
// Only an object/map value is accepted at the top level.
func paramsFromCty(v cty.Value) (map[string]any, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("params must be an object, got %s", v.Type().FriendlyName())
	}
	params := make(map[string]any)
	it := v.ElementIterator()
	for it.Next() {
		key, val := it.Element()
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", key.AsString(), err)
		}
		params[key.AsString()] = native
	}
	return params, nil
}

// ctyToNative recursively converts a cty value into its natural Go
// counterpart: string, float64, bool, []any, or map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var out []any
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
