// Package config loads declarative patch definitions from YAML or JSON files.
package config

// File is the decoded form of a configuration document.
type File struct {
	Version         int         `yaml:"version,omitempty" json:"version,omitempty"`
	Strict          bool        `yaml:"strict,omitempty" json:"strict,omitempty"`
	ValidateBalance bool        `yaml:"validate_balance,omitempty" json:"validate_balance,omitempty"`
	Patches         []PatchSpec `yaml:"patches" json:"patches"`

	// BaseDir resolves relative target and replacement_file paths. Load sets it to the
	// directory holding the configuration file.
	BaseDir string `yaml:"-" json:"-"`
	// Source is the path the file was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// PatchSpec binds a target file to an ordered list of steps.
type PatchSpec struct {
	Name            string     `yaml:"name,omitempty" json:"name,omitempty"`
	Target          string     `yaml:"target" json:"target"`
	Strict          *bool      `yaml:"strict,omitempty" json:"strict,omitempty"`
	ValidateBalance *bool      `yaml:"validate_balance,omitempty" json:"validate_balance,omitempty"`
	Steps           []StepSpec `yaml:"steps" json:"steps"`
}

// StepSpec is one configured step.
type StepSpec struct {
	Name            string      `yaml:"name,omitempty" json:"name,omitempty"`
	Mode            string      `yaml:"mode,omitempty" json:"mode,omitempty"`
	Match           MatchSpec   `yaml:"match" json:"match"`
	Replacement     *string     `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	ReplacementFile string      `yaml:"replacement_file,omitempty" json:"replacement_file,omitempty"`
	Trim            bool        `yaml:"trim,omitempty" json:"trim,omitempty"`
	Expand          bool        `yaml:"expand,omitempty" json:"expand,omitempty"`
	Expect          *ExpectSpec `yaml:"expect,omitempty" json:"expect,omitempty"`
	IfContains      string      `yaml:"if_contains,omitempty" json:"if_contains,omitempty"`
	UnlessContains  string      `yaml:"unless_contains,omitempty" json:"unless_contains,omitempty"`
	ValidateBalance bool        `yaml:"validate_balance,omitempty" json:"validate_balance,omitempty"`
	Optional        bool        `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// MatchSpec describes the pattern of a step.
type MatchSpec struct {
	Kind       string `yaml:"kind" json:"kind"`
	Pattern    string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Engine     string `yaml:"engine,omitempty" json:"engine,omitempty"`
	DotAll     bool   `yaml:"dotall,omitempty" json:"dotall,omitempty"`
	Multiline  bool   `yaml:"multiline,omitempty" json:"multiline,omitempty"`
	Open       string `yaml:"open,omitempty" json:"open,omitempty"`
	OpenDelim  string `yaml:"open_delim,omitempty" json:"open_delim,omitempty"`
	CloseDelim string `yaml:"close_delim,omitempty" json:"close_delim,omitempty"`
}

// ExpectSpec bounds the match count of a step.
type ExpectSpec struct {
	Min int `yaml:"min,omitempty" json:"min,omitempty"`
	Max int `yaml:"max,omitempty" json:"max,omitempty"`
}
