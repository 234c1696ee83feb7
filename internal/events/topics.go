package events

// Topics emitted by the quote engine.
const (
	// TopicQuoteCreated fires once per new draft.
	TopicQuoteCreated = "quote.created"
	// TopicQuotePriceChanged fires whenever a mutation moves the total.
	TopicQuotePriceChanged = "quote.price_changed"
	// TopicQuoteExported fires when a summary is sent out.
	TopicQuoteExported = "quote.exported"
)
