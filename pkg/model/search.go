package model

// SearchRequest selects assets by type and qualified name. The full query DSL
// lives server-side; the client only needs exact and case-insensitive
// qualified-name matching over a set of candidate types.
type SearchRequest struct {
	TypeNames       []string `json:"typeNames,omitempty"`
	QualifiedNames  []string `json:"qualifiedNames,omitempty"`
	CaseInsensitive bool     `json:"caseInsensitive,omitempty"`
	Attributes      []string `json:"attributes,omitempty"`
	From            int      `json:"from"`
	Size            int      `json:"size"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Assets           []Asset `json:"entities"`
	ApproximateCount int64   `json:"approximateCount"`
}
