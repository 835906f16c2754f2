package ospackage

import (
	"fmt"
)

// PackageInfo holds everything the checker needs to know about one package.
type PackageInfo struct {
	Name     string   `json:"name" yaml:"name"`                             // e.g. "bash"
	Epoch    string   `json:"epoch,omitempty" yaml:"epoch,omitempty"`       // e.g. "1", usually empty
	Version  string   `json:"version,omitempty" yaml:"version,omitempty"`   // e.g. "5.1.8"
	Release  string   `json:"release,omitempty" yaml:"release,omitempty"`   // e.g. "9.el9"
	Arch     string   `json:"arch,omitempty" yaml:"arch,omitempty"`         // e.g. "x86_64", "noarch", "src"
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`         // local .rpm file, if any
	Provides []string `json:"provides,omitempty" yaml:"provides,omitempty"` // capabilities this package provides
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"` // capabilities this package requires
	Deps     []string `json:"deps,omitempty" yaml:"deps,omitempty"`         // explicit dependency packages
}

// EVR renders [epoch:]version[-release].
func (p PackageInfo) EVR() string {
	evr := p.Version
	if p.Epoch != "" {
		evr = p.Epoch + ":" + evr
	}
	if p.Release != "" {
		evr += "-" + p.Release
	}
	return evr
}

// NEVRA renders name-[epoch:]version-release.arch the way rpm -q prints it.
func (p PackageInfo) NEVRA() string {
	s := p.Name
	if evr := p.EVR(); evr != "" {
		s = fmt.Sprintf("%s-%s", s, evr)
	}
	if p.Arch != "" {
		s += "." + p.Arch
	}
	return s
}
