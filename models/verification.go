package models

import "mailverify/verifier"

// VerifyRequest is the body of a single-address verification.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,max=320"`
}

// BulkVerifyRequest is the body of a bulk verification. Deep verification is
// never offered in bulk.
type BulkVerifyRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,dive,required,max=320"`
	Depth  string   `json:"depth" validate:"omitempty,oneof=quick full"`
}

// DeepVerifyResponse adds optional WHOIS text to a deep result.
type DeepVerifyResponse struct {
	*verifier.Result
	WHOIS string `json:"whois,omitempty"`
}

// BulkSummary counts bulk outcomes by the stage that rejected them.
type BulkSummary struct {
	Total        int `json:"total"`
	Valid        int `json:"valid"`
	Invalid      int `json:"invalid"`
	Format       int `json:"format"`
	Disposable   int `json:"disposable"`
	NoMX         int `json:"no_mx"`
	SMTPRejected int `json:"smtp_rejected"`
	// Skipped counts addresses never verified because the run was cancelled.
	Skipped int `json:"skipped"`
}

// Add tallies one result; nil counts as skipped.
func (s *BulkSummary) Add(r *verifier.Result) {
	s.Total++
	switch {
	case r == nil:
		s.Skipped++
		return
	case r.IsValid:
		s.Valid++
		return
	}

	s.Invalid++
	switch r.ReachedStage {
	case verifier.StageFormat:
		s.Format++
	case verifier.StageDisposable:
		s.Disposable++
	case verifier.StageMX:
		s.NoMX++
	case verifier.StageSMTP:
		s.SMTPRejected++
	}
}

// BulkVerifyResponse keeps results in request order.
type BulkVerifyResponse struct {
	Depth   verifier.Depth     `json:"depth"`
	Results []*verifier.Result `json:"results"`
	Summary BulkSummary        `json:"summary"`
}

// StreamMessage is one websocket frame of a streamed bulk run.
type StreamMessage struct {
	Type    string           `json:"type"` // result, summary, error
	Index   int              `json:"index"`
	Result  *verifier.Result `json:"result,omitempty"`
	Summary *BulkSummary     `json:"summary,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// RoleAdmin may trigger deep verification.
const RoleAdmin = "admin"

// Operator is the authenticated caller of a protected endpoint.
type Operator struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

func (o *Operator) IsAdmin() bool {
	return o != nil && o.Role == RoleAdmin
}
