package data

// An ExportDefinition describes a labeled export in YAML form: which asset to
// export, how to filter the submissions and how to shape the output.
type ExportDefinition struct {
	Asset           string `yaml:"asset"`
	Query           string `yaml:"query"`
	SubmittedAfter  string `yaml:"submitted-after"`
	UnpackMultiples bool   `yaml:"unpack-multiples"`
	Reverse         bool   `yaml:"reverse"`
	OutputFile      string `yaml:"output-file"`
}
