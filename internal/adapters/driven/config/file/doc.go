// Package file provides the TOML configuration store.
//
// The file lives at $SERCHA_RAG_HOME/config.toml (default ~/.sercha-rag):
//
//	[store]
//	backend = "pgvector"
//	dsn = "postgres://localhost/rag?sslmode=disable"
//
//	[sources.docs]
//	base_url = "https://docs.example.com"
//	initial_page = "/en/intro.html"
//
// Tables are read through flattened keys such as "sources.docs.base_url".
package file
