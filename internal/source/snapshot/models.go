package snapshot

// File is the JSON document a collector run writes.
type File struct {
	ScrapedAt    string   `json:"scrapedAt"`
	CategoryURLs []string `json:"categoryUrls"`
	Total        int      `json:"total"`
	Items        []Item   `json:"items"`
}

type Item struct {
	TapID           string         `json:"tapId"`
	RemoteID        string         `json:"remoteId,omitempty"`
	Title           *string        `json:"title"`
	Price           *float64       `json:"price"`
	Currency        *string        `json:"currency"`
	Location        *string        `json:"location"`
	URL             *string        `json:"url"`
	ImageURL        *string        `json:"imageUrl"`
	CategorySlug    *string        `json:"categorySlug"`
	SubcategorySlug *string        `json:"subcategorySlug"`
	Description     *string        `json:"description"`
	SellerName      *string        `json:"sellerName"`
	SellerType      *string        `json:"sellerType"`
	PostedAtISO     *string        `json:"postedAtISO"`
	PostedAtText    *string        `json:"postedAtText"`
	ConditionLabel  *string        `json:"conditionLabel"`
	ViewCount       *int           `json:"viewCount"`
	FavoritesCount  *int           `json:"favoritesCount"`
	IsNew           *bool          `json:"isNew"`
	FetchedAt       *string        `json:"fetchedAt"`
	Raw             map[string]any `json:"raw"`
}
