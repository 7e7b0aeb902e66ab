package errors

import (
	"strings"
	"testing"
)

func TestValidateTreeName(t *testing.T) {
	valid := []string{"main", "rig", "deform-v2", "tree_01"}
	for _, name := range valid {
		if err := ValidateTreeName(name); err != nil {
			t.Errorf("ValidateTreeName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"../escape",
		"a/b",
		"back\\slash",
		"ctrl\x01char",
		strings.Repeat("x", 257),
	}
	for _, name := range invalid {
		if err := ValidateTreeName(name); !Is(err, ErrCodeInvalidTree) {
			t.Errorf("ValidateTreeName(%q) = %v, want INVALID_TREE", name, err)
		}
	}
}

func TestValidateSocketRef(t *testing.T) {
	if err := ValidateSocketRef("node.socket"); err != nil {
		t.Errorf("valid ref rejected: %v", err)
	}

	for _, ref := range []string{"", "node", "a.b.c", "a. b", ".socket", "node."} {
		if err := ValidateSocketRef(ref); !Is(err, ErrCodeInvalidInput) {
			t.Errorf("ValidateSocketRef(%q) = %v, want INVALID_INPUT", ref, err)
		}
	}
}

func TestValidateFormat(t *testing.T) {
	for _, format := range []string{"dot", "svg", "json"} {
		if err := ValidateFormat(format); err != nil {
			t.Errorf("ValidateFormat(%q) = %v, want nil", format, err)
		}
	}
	for _, format := range []string{"", "png", "pdf"} {
		if err := ValidateFormat(format); !Is(err, ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) = %v, want INVALID_FORMAT", format, err)
		}
	}
}
