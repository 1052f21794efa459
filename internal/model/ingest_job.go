package model

// IngestJob is the queue payload for one asynchronous ingestion run.
// Data carries the raw upload bytes (base64 on the wire via encoding/json).
type IngestJob struct {
	RunID        string `json:"run_id"`
	UserID       uint   `json:"user_id"`
	CollectionID uint   `json:"collection_id"`
	Filename     string `json:"filename"`
	Data         []byte `json:"data"`
}
