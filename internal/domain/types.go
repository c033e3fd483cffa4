package domain

import "time"

// FetchStatus is the terminal outcome of fetching one page.
type FetchStatus string

const (
	StatusOK        FetchStatus = "ok"
	StatusHTTPError FetchStatus = "http_error"
	StatusTimeout   FetchStatus = "timeout"
	StatusConnError FetchStatus = "conn_error"
	StatusBlocked   FetchStatus = "blocked"
)

// PageResult is the outcome of fetching one page. Body is non-empty
// exactly when Status is StatusOK; every network failure is folded
// into Status instead of an error.
type PageResult struct {
	URL        string      `json:"url"`
	Status     FetchStatus `json:"status"`
	HTTPStatus int         `json:"http_status,omitempty"`
	Body       string      `json:"-"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// PageAttempt records the outcome of one page for observability,
// success or failure.
type PageAttempt struct {
	URL        string      `json:"url"`
	Status     FetchStatus `json:"status"`
	HTTPStatus int         `json:"http_status,omitempty"`
	Cached     bool        `json:"cached,omitempty"`
}

// Confidence marks how a field value was obtained.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// Field name keys used in per-field confidence maps.
const (
	FieldBusinessName     = "business_name"
	FieldDescription      = "description"
	FieldIndustry         = "industry"
	FieldTargetAudience   = "target_audience"
	FieldTone             = "tone"
	FieldContactEmail     = "contact_email"
	FieldContactPhone     = "contact_phone"
	FieldProductsServices = "products_services"
)

// Fields is the attribute set shared by drafts and stored profiles.
// An empty string means the field is unresolved; extraction never
// fabricates values.
type Fields struct {
	BusinessName     string `json:"business_name"`
	Description      string `json:"description"`
	Industry         string `json:"industry"`
	TargetAudience   string `json:"target_audience"`
	Tone             string `json:"tone"`
	ContactEmail     string `json:"contact_email"`
	ContactPhone     string `json:"contact_phone"`
	ProductsServices string `json:"products_services"`
}

// ProfileDraft is the ephemeral extraction result handed to the user
// for review. It is never persisted as-is.
type ProfileDraft struct {
	SourceURL  string                `json:"source_url"`
	PagesUsed  []string              `json:"pages_used"`
	Fields     Fields                `json:"fields"`
	Confidence map[string]Confidence `json:"confidence"`
}

// CompanyProfile is the persisted record, keyed by normalized domain
// or by an explicit user-supplied id for manual entries.
type CompanyProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SourceURL string    `json:"source_url,omitempty"`
	Fields    Fields    `json:"fields"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ─── API payloads ─────────────────────────────────────────────────────────────

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	URL        string `json:"url"`
	PageBudget int    `json:"page_budget,omitempty"`
}

// AnalyzeResponse carries the draft plus the per-page attempt log so
// the caller can tell what to verify manually.
type AnalyzeResponse struct {
	Draft      ProfileDraft  `json:"draft"`
	Attempts   []PageAttempt `json:"attempts"`
	StartedAt  time.Time     `json:"started_at"`
	DurationMs int64         `json:"duration_ms"`
}

// SaveProfileRequest is the body of POST /api/v1/profiles.
// ExpectedVersion 0 performs an unconditional overwrite.
type SaveProfileRequest struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	Fields          Fields `json:"fields"`
	ExpectedVersion int    `json:"expected_version,omitempty"`
}

// CaptionRequest is the body of POST /api/v1/captions.
type CaptionRequest struct {
	ProfileID string `json:"profile_id"`
	Platform  string `json:"platform,omitempty"`
	Tone      string `json:"tone,omitempty"`
	Count     int    `json:"count,omitempty"`
	ImageRef  string `json:"image_ref,omitempty"`
}

// CaptionResponse is the generated caption variants.
type CaptionResponse struct {
	ProfileID string   `json:"profile_id"`
	Captions  []string `json:"captions"`
}
