package mcp

// objectSchema returns a minimal JSON Schema for an object with no required fields.
func objectSchema(props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// requiredObjectSchema returns a JSON Schema for an object with required fields.
func requiredObjectSchema(props map[string]any, required []string) map[string]any {
	s := objectSchema(props)
	s["required"] = required
	return s
}

// runInputSchema describes xl2times_run arguments. input takes a single
// path or a list, which an inferred schema cannot express.
var runInputSchema = requiredObjectSchema(map[string]any{
	"input": map[string]any{
		"type":        []string{"string", "array"},
		"items":       map[string]any{"type": "string"},
		"description": "Input directory or list of Excel files (.xlsx, .xlsm).",
	},
	"output_dir": map[string]any{
		"type":        "string",
		"description": "Output directory for CSV files. Relative paths resolve against the workspace.",
	},
	"regions": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Regions to include; all regions when omitted.",
	},
	"include_dummy_imports": map[string]any{
		"type":        "boolean",
		"description": "Include dummy import processes.",
	},
	"ground_truth_dir": map[string]any{
		"type":        "string",
		"description": "Directory of reference CSVs to compare the output against.",
	},
	"dd": map[string]any{
		"type":        "boolean",
		"description": "Write DD files instead of CSV.",
	},
	"only_read": map[string]any{
		"type":        "boolean",
		"description": "Only read the workbooks and dump raw tables to output_dir/raw_tables.txt.",
	},
	"no_cache": map[string]any{
		"type":        "boolean",
		"description": "Ignore cached workbook data.",
	},
	"verbose": map[string]any{
		"type":        "integer",
		"minimum":     0,
		"maximum":     4,
		"description": "Verbosity level; each level adds one -v flag.",
	},
}, []string{"input"})
