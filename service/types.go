package service

import "time"

// GenerateRequest identifies one bot pipeline.
type GenerateRequest struct {
	Bot string
	// InputURL is the directory holding <bot>.csv (or .xlsx/.xls).
	InputURL string
	// OutputURL is the directory receiving <bot>.model.json.
	OutputURL string
}

// GenerateAllRequest runs several bots against the same input and output.
type GenerateAllRequest struct {
	Bots      []string
	InputURL  string
	OutputURL string
}

// Result reports the outcome of one bot pipeline.
type Result struct {
	Bot        string
	DatasetURL string
	ModelURL   string
	Rows       int
	Keys       int
	Embeddings int
	Dimension  int
	Elapsed    time.Duration
	Err        error
}
