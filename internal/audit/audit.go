// Package audit emits one record per completed AI call or proxy forward.
package audit

// Record is a single audit event. Prompt and Response are post-redaction;
// proxy forwards carry a bounded response preview.
type Record struct {
	Timestamp int64  `json:"timestamp"`
	Tenant    string `json:"tenant"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
}

// Sink is an append-only audit destination. Write may be called from many
// request goroutines concurrently; implementations serialize the appends so
// record order matches emission order.
type Sink interface {
	Write(rec Record) error
	Close() error
}
