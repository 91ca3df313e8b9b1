// Package policy loads the optional check policy file: which diagnostic
// codes to suppress and whether warnings fail the build. A policy filters
// what is reported and how the exit status is decided; it never rewrites
// the kind or severity recorded against a finding.
package policy

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/4tyone/pyrethrum/internal/diagnostic"
)

// Policy is the top-level check policy.
type Policy struct {
	Strict   bool     `yaml:"strict"`
	Disabled []string `yaml:"disabled"`
}

// Default returns the policy used when no file is given: nothing disabled,
// warnings do not fail the build.
func Default() *Policy {
	return &Policy{}
}

// Load reads a policy from a YAML file. The file has a top-level "check"
// key:
//
//	check:
//	  strict: true
//	  disabled: [EXH004]
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: read %s", path)
	}

	var wrapper struct {
		Check Policy `yaml:"check"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "policy: parse %s", path)
	}
	return &wrapper.Check, nil
}

// Filter drops diagnostics whose code is disabled, preserving order.
func (p *Policy) Filter(diags []diagnostic.Diagnostic) []diagnostic.Diagnostic {
	if len(p.Disabled) == 0 {
		return diags
	}
	disabled := make(map[string]bool, len(p.Disabled))
	for _, code := range p.Disabled {
		disabled[code] = true
	}
	out := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if !disabled[d.Code] {
			out = append(out, d)
		}
	}
	return out
}

// Fails reports whether a result should fail the build under this policy:
// errors always do, warnings only in strict mode.
func (p *Policy) Fails(r diagnostic.Result) bool {
	if r.Errors > 0 {
		return true
	}
	return p.Strict && r.Warnings > 0
}
