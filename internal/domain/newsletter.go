package domain

type ContentFormat string

const (
	FormatHTML     ContentFormat = "html"
	FormatMarkdown ContentFormat = "markdown"
)

type NewsletterIssue struct {
	Subject string
	Content string
	Format  ContentFormat
}

type DeliveryFailure struct {
	SubscriberId SubscriberId `json:"subscriber_id"`
	Email        string       `json:"email"` // redacted
	Error        string       `json:"error"`
}

// DeliveryReport summarises one newsletter broadcast.
type DeliveryReport struct {
	Recipients int               `json:"recipients"`
	Delivered  int               `json:"delivered"`
	Skipped    int               `json:"skipped"`
	Failures   []DeliveryFailure `json:"failures"`
}

func (r DeliveryReport) Complete() bool {
	return len(r.Failures) == 0
}
