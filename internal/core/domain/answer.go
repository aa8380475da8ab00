package domain

// AI method values describe what grounded the generated answer.
const (
	AIMethodDocumentGrounded = "document_grounded"
	AIMethodWebGrounded      = "web_grounded"
	AIMethodHybridGrounded   = "hybrid_grounded"
	AIMethodUngrounded       = "ungrounded"
)

type AnswerResponse struct {
	Answer               string         `json:"answer"`
	Sources              []EvidenceItem `json:"sources"`
	Domain               string         `json:"domain"`
	AssistantName        string         `json:"assistant_name"`
	AssistantDescription string         `json:"assistant_description"`
	SearchMethod         string         `json:"search_method"`
	AIMethod             string         `json:"ai_method"`
	EmbeddingMethod      string         `json:"embedding_method"`
	DocumentsFound       int            `json:"documents_found"`
	WebSearchUsed        bool           `json:"web_search_used"`
	FallbackUsed         bool           `json:"fallback_used"`
	ModelUsed            string         `json:"model_used"`
}
