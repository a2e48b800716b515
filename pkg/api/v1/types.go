package v1

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

type PackageType string

const (
	PackageNPM PackageType = "NPM"
)

type InstallSpec struct {
	// Registry overrides the default npm registry. Environment
	// variables in the url are expanded before use.
	Registry string `json:"registry,omitempty"`
	// Dir is the directory that packages are materialised into.
	Dir      string    `json:"dir,omitempty"`
	Packages []Package `json:"packages,omitempty"`
	// Dependencies installs each package's declared dependencies
	// under its node_modules directory, recursively.
	Dependencies bool `json:"dependencies,omitempty"`
	// DevDependencies additionally installs each package's own dev
	// dependencies. Dev dependencies are never installed transitively.
	DevDependencies bool `json:"devDependencies,omitempty"`
}

type Package struct {
	Name string `json:"name"`
	// Version is a specifier: exact ("1.2.3"), caret ("^1.2.0"),
	// tilde ("~1.2"), wildcard ("1.x") or "latest". Empty means
	// "latest".
	Version string `json:"version,omitempty"`
}

type Install struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec InstallSpec `json:"spec"`
}
