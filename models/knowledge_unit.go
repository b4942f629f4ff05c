package models

// KnowledgeUnit represents one retrievable passage of the knowledge base.
// Units are built once at load time and never mutated afterwards; ID is the
// unit's position in load order and stays stable for the process lifetime.
type KnowledgeUnit struct {
	ID    int    `json:"id"`
	Title string `json:"title"` // short representative string, used for embedding
	Body  string `json:"body"`  // full text returned as context on a hit
}

// FAQEntry is one record of the structured knowledge-source variant.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
