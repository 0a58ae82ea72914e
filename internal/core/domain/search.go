package domain

// SearchRequest is a similarity search against one knowledge domain.
type SearchRequest struct {
	// Query is the natural-language text to embed and match.
	Query string

	// Filter restricts the search by metadata. Retrieval always sets Type.
	Filter Filter

	// SimilarityThreshold drops matches scoring below it (0 disables).
	SimilarityThreshold float64

	// TopK bounds the number of matches.
	TopK int
}

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// Domains restricts the query to the named tools or types.
	// Empty dispatches to every enabled tool.
	Domains []string

	// Params overrides the default retrieval parameters.
	Params *Parameters
}

// SearchResult is the merged, deduplicated outcome of a retrieval query.
type SearchResult struct {
	// Documents are ranked best first.
	Documents []Document

	// Trace holds the per-request log lines, oldest first.
	Trace []string
}

// ToolSettings holds the per-domain retrieval parameters.
type ToolSettings struct {
	Name                string
	Type                string
	Enabled             bool
	Description         string
	SimilarityThreshold float64
	TopK                int
	TopReranked         int
	MinScore            float64
	MinRerankedScore    float64
	NoResultsMessage    string
}

// DefaultNoResultsMessage is returned by a tool that found nothing.
const DefaultNoResultsMessage = "No results found for the query. Try rephrasing your query or using another tool."
