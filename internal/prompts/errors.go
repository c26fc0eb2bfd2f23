package prompts

import "errors"

// Sentinel kinds for corpus errors.
var (
	ErrEmptyCorpus = errors.New("prompt corpus is empty")
)
