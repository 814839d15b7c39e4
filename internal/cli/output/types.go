package output

// RenderOutput is the JSON form of one rendered template.
type RenderOutput struct {
	File    string `json:"file"`
	Output  string `json:"output,omitempty"`
	OutPath string `json:"out_path,omitempty"`
	TraceID string `json:"trace_id"`
}

// Diagnostic is one compile or load problem.
type Diagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// CheckOutput is the JSON result of the check command.
type CheckOutput struct {
	Files       int          `json:"files"`
	OK          bool         `json:"ok"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// TokenInfo is the JSON form of a lexer token.
type TokenInfo struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// NodeInfo is the JSON form of a parsed node.
type NodeInfo struct {
	Type     string     `json:"type"`
	Path     string     `json:"path,omitempty"`
	Text     string     `json:"text,omitempty"`
	Helper   string     `json:"helper,omitempty"`
	Negated  bool       `json:"negated,omitempty"`
	Escape   *bool      `json:"escape,omitempty"`
	Line     int        `json:"line"`
	Column   int        `json:"column"`
	Children []NodeInfo `json:"children,omitempty"`
}
