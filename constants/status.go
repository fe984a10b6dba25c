package constants

// BatchStatus is the canonical status for rows in blotters.
type BatchStatus string

// Stable values (store these exact strings in DB).
const (
	BatchStatusParsed     BatchStatus = "PARSED"     // incidents stored
	BatchStatusSummarized BatchStatus = "SUMMARIZED" // digest post written
	BatchStatusFailed     BatchStatus = "FAILED"
)

// DigestSource records which path produced a digest post.
type DigestSource string

const (
	DigestSourceLLM      DigestSource = "llm"
	DigestSourceFallback DigestSource = "fallback"
)
