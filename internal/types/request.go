package types

// RequestDescriptor is one outbound request observed while the target page
// loads. It is consumed immediately by the filter and never stored.
type RequestDescriptor struct {
	URL string `json:"url"`
}
