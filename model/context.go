package model

// Scenario classifies which combination of retrieval sources succeeded
// for a given query. Classification follows a strict priority order,
// evaluated only after all dispatched lookups have settled.
type Scenario string

const (
	ScenarioMultiEntityAnalysis Scenario = "multi_entity_analysis"
	ScenarioDirectEntity        Scenario = "direct_entity"
	ScenarioSemanticOnly        Scenario = "pinecone_only"
	ScenarioMemoryFallback      Scenario = "memory_fallback"
)

// RetrievalContext is the ephemeral, query-scoped aggregate handed to the
// synthesizer. It is created per query and discarded after use. Every
// retrieval run produces one, regardless of how many sources failed;
// degradation is expressed through the Scenario tag and Message text.
type RetrievalContext struct {
	Query    string              `json:"query"`
	Scenario Scenario            `json:"scenario"`
	Entities []*ResolvedEntity   `json:"entities,omitempty"`
	Chunks   []*CodeChunk        `json:"chunks,omitempty"`
	Turns    []*ConversationTurn `json:"turns,omitempty"`
	Message  string              `json:"message,omitempty"`
}

// IsEmpty reports whether the context carries no usable material at all
func (c *RetrievalContext) IsEmpty() bool {
	return len(c.Entities) == 0 && len(c.Chunks) == 0 && len(c.Turns) == 0
}
