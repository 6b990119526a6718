// Package domaincfg decodes a human-written YAML domain/region layout
// and compiles it into the Go source `domain.Register` consumes at
// cold boot — the host-side half of SPEC_FULL.md §B's yaml.v3 entry,
// playing the exact role the teacher's tools/makelogo plays for the
// boot logo (an external asset compiled once into a Go literal, never
// parsed again at boot time) generalized from an image to a
// configuration document.
package main

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the top-level YAML shape: a list of domains.
type Document struct {
	Domains []DomainSpec `yaml:"domains"`
}

// DomainSpec is one domain entry.
type DomainSpec struct {
	Name          string       `yaml:"name"`
	PossibleHarts []uint       `yaml:"possible_harts"`
	AssignHarts   []uint       `yaml:"assign_harts"`
	Regions       []RegionSpec `yaml:"regions"`
}

// RegionSpec is one memory region, with Base/Order given in the YAML
// as plain integers (yaml.v3 accepts "0x..." hex literals natively)
// and Flags as a list of symbolic names matching domain.go's Region*
// flag constants.
type RegionSpec struct {
	Base  uint64   `yaml:"base"`
	Order uint     `yaml:"order"`
	Flags []string `yaml:"flags"`
}

// flagBits mirrors package domain's Region* bit constants; kept as a
// local copy rather than an import so this host tool has no
// dependency on the freestanding firmware packages' build
// constraints.
var flagBits = map[string]uint64{
	"m-read":  1 << 0,
	"m-write": 1 << 1,
	"m-exec":  1 << 2,

	"su-read":  1 << 3,
	"su-write": 1 << 4,
	"su-exec":  1 << 5,

	"mmio": 1 << 30,
	"fw":   1 << 31,
}

// Parse decodes raw YAML into a Document, validating that every
// region's flag list only names recognized bits.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("domaincfg: parsing YAML: %w", err)
	}
	for _, d := range doc.Domains {
		if d.Name == "" {
			return nil, fmt.Errorf("domaincfg: domain with no name")
		}
		if len(d.Regions) == 0 {
			return nil, fmt.Errorf("domaincfg: domain %q has no regions", d.Name)
		}
		for _, r := range d.Regions {
			for _, f := range r.Flags {
				if _, ok := flagBits[f]; !ok {
					return nil, fmt.Errorf("domaincfg: domain %q region has unknown flag %q", d.Name, f)
				}
			}
		}
	}
	return &doc, nil
}

// regionFlags ORs together the bit values named by flags.
func regionFlags(flags []string) uint64 {
	var v uint64
	for _, f := range flags {
		v |= flagBits[f]
	}
	return v
}

// hartMask ORs (1<<h) for every hart index in harts, matching
// bitmap.Bitmap64's bit-per-HART layout.
func hartMask(harts []uint) uint64 {
	var v uint64
	for _, h := range harts {
		v |= 1 << h
	}
	return v
}
