package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/thalesfsp/gnnsearch/ho"
)

// hclSpaceFile represents the top-level structure of a search-space file.
//
//	param "lr" {
//	  distribution = "loguniform"
//	  low          = 0.0001
//	  high         = 0.01
//	}
//
//	param "step_size" {
//	  distribution = "quniform"
//	  low          = 10
//	  high         = 31
//	  q            = 10
//	  integer      = true
//	}
type hclSpaceFile struct {
	Params []*hclParam `hcl:"param,block"`
}

type hclParam struct {
	Name         string   `hcl:"name,label"`
	Distribution string   `hcl:"distribution"`
	Low          float64  `hcl:"low"`
	High         float64  `hcl:"high"`
	Q            *float64 `hcl:"q,optional"`
	Integer      *bool    `hcl:"integer,optional"`
}

// LoadSpace reads a search space from an HCL file.
func LoadSpace(path string) (ho.Space, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read search space %s: %w", path, err)
	}

	return ParseSpace(src, path)
}

// ParseSpace decodes HCL source into a validated search space. filename is
// only used in diagnostics.
func ParseSpace(src []byte, filename string) (ho.Space, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclSpaceFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	space := make(ho.Space, 0, len(parsed.Params))

	for _, p := range parsed.Params {
		dist, diags := p.distribution()
		if diags.HasErrors() {
			return nil, fmt.Errorf("error in param %q of %s: %w", p.Name, filename, diags)
		}

		space = append(space, ho.Param{Name: p.Name, Distribution: dist})
	}

	if err := ValidateSpace(space); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return space, nil
}

func (p *hclParam) distribution() (ho.Distribution, hcl.Diagnostics) {
	if p.Distribution != "quniform" && (p.Q != nil || p.Integer != nil) {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unexpected attribute",
			Detail:   `"q" and "integer" only apply to the quniform distribution.`,
		}}
	}

	switch p.Distribution {
	case "loguniform":
		return ho.LogUniform{Low: p.Low, High: p.High}, nil
	case "uniform":
		return ho.Uniform{Low: p.Low, High: p.High}, nil
	case "quniform":
		if p.Q == nil {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Missing required argument",
				Detail:   `The argument "q" is required for the quniform distribution.`,
			}}
		}

		d := ho.QUniform{Low: p.Low, High: p.High, Q: *p.Q}
		if p.Integer != nil {
			d.Integer = *p.Integer
		}

		return d, nil
	default:
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported distribution",
			Detail:   fmt.Sprintf("Distribution %q is not one of loguniform, uniform, quniform.", p.Distribution),
		}}
	}
}
